package contract

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeBundle(t *testing.T, root, platform, name string, b bundle) {
	t.Helper()
	dir := filepath.Join(root, platform, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	raw, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal bundle: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bundle.json"), raw, 0o644); err != nil {
		t.Fatalf("write bundle: %v", err)
	}
}

func TestLoadWasmBundle(t *testing.T) {
	root := t.TempDir()
	writeBundle(t, root, "ink-wasm", "flipper", bundle{
		Name:               "flipper",
		SourceWasm:         base64.StdEncoding.EncodeToString([]byte("\x00asm\x01\x00\x00\x00")),
		EncodedConstructor: "0x9bae9d5e",
		Messages: []bundleCall{
			{Name: "flip", EncodedCall: "0x633aa551"},
		},
	})

	desc, err := Load(root, "ink-wasm", "flipper")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if desc.Name != "flipper" {
		t.Errorf("name = %q, want flipper", desc.Name)
	}
	if len(desc.Code) != 8 {
		t.Errorf("code length = %d, want 8", len(desc.Code))
	}
	ctor, err := desc.Constructor()
	if err != nil {
		t.Fatalf("Constructor: %v", err)
	}
	if ctor.Kind != KindConstructor || len(ctor.Data) != 4 {
		t.Errorf("constructor = %+v, want 4-byte constructor payload", ctor)
	}
	if len(desc.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(desc.Messages))
	}
	call, err := desc.Messages[0]()
	if err != nil {
		t.Fatalf("message builder: %v", err)
	}
	if call.Kind != KindCall || len(call.Data) != 4 {
		t.Errorf("call = %+v, want 4-byte call payload", call)
	}
}

func TestLoadEVMBundle(t *testing.T) {
	root := t.TempDir()
	writeBundle(t, root, "evm", "erc20", bundle{
		Name:               "erc20",
		Bytecode:           "0x6080604052",
		EncodedConstructor: "",
		Messages: []bundleCall{
			{Name: "transfer", EncodedCall: "0xa9059cbb0000"},
		},
	})

	desc, err := Load(root, "evm", "erc20")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(desc.Code) != 5 {
		t.Errorf("code length = %d, want 5", len(desc.Code))
	}
}

func TestLoadMissingBundle(t *testing.T) {
	root := t.TempDir()
	if _, err := Load(root, "evm", "nope"); err == nil {
		t.Fatal("expected error for missing bundle")
	}
}

func TestLoadRejectsEmptyMessages(t *testing.T) {
	root := t.TempDir()
	writeBundle(t, root, "evm", "bare", bundle{
		Name:     "bare",
		Bytecode: "0x00",
	})
	if _, err := Load(root, "evm", "bare"); err == nil {
		t.Fatal("expected validation error for bundle with no messages")
	}
}
