// Copyright 2025 smart-bench-go
package contract

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// bundle is the on-disk JSON shape for one contract. The metadata layer
// (ABI/ink-metadata parsing, selector derivation) lives upstream of this
// loader: by the time a bundle reaches here, every message is already a
// fully encoded call (selector + args). This loader's only job is to
// turn the on-disk hex/base64 encoding into Descriptor values.
type bundle struct {
	Name               string       `json:"name"`
	SourceWasm         string       `json:"source_wasm,omitempty"`
	Bytecode           string       `json:"bytecode,omitempty"`
	EncodedConstructor string       `json:"encoded_constructor"`
	Messages           []bundleCall `json:"messages"`
}

type bundleCall struct {
	Name        string `json:"name"`
	EncodedCall string `json:"encoded_call"`
}

// Load reads a contract bundle from
// <root>/<platform>/<name>/bundle.json and builds a Descriptor.
//
// Wasm bundles carry "source_wasm" (base64); EVM bundles carry
// "bytecode" (hex). Message/constructor payloads are hex strings in
// both cases — they are opaque to this package either way.
func Load(root, platform, name string) (*Descriptor, error) {
	path := filepath.Join(root, platform, name, "bundle.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load contract bundle %q: %w", path, err)
	}

	var b bundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("parse contract bundle %q: %w", path, err)
	}
	if b.Name == "" {
		b.Name = name
	}

	code, err := decodeCode(b)
	if err != nil {
		return nil, fmt.Errorf("contract %q: %w", name, err)
	}

	ctorPayload, err := hex.DecodeString(trimHexPrefix(b.EncodedConstructor))
	if err != nil {
		return nil, fmt.Errorf("contract %q: decode constructor payload: %w", name, err)
	}

	desc := &Descriptor{
		Name: b.Name,
		Code: code,
		Constructor: func() (EncodedMessage, error) {
			return EncodedMessage{Kind: KindConstructor, Data: ctorPayload}, nil
		},
	}

	for _, m := range b.Messages {
		payload, err := hex.DecodeString(trimHexPrefix(m.EncodedCall))
		if err != nil {
			return nil, fmt.Errorf("contract %q: decode message %q: %w", name, m.Name, err)
		}
		desc.Messages = append(desc.Messages, func(p []byte) MessageBuilder {
			return func() (EncodedMessage, error) {
				return EncodedMessage{Kind: KindCall, Data: p}, nil
			}
		}(payload))
	}

	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return desc, nil
}

func decodeCode(b bundle) ([]byte, error) {
	switch {
	case b.SourceWasm != "":
		return decodeWasmSource(b.SourceWasm)
	case b.Bytecode != "":
		return hex.DecodeString(trimHexPrefix(b.Bytecode))
	default:
		return nil, fmt.Errorf("bundle has neither source_wasm nor bytecode")
	}
}

// decodeWasmSource accepts either raw base64 or a "0x"-prefixed hex
// string, since smart-bench catalogs in the wild use both conventions.
func decodeWasmSource(s string) ([]byte, error) {
	if len(s) >= 2 && s[0:2] == "0x" {
		return hex.DecodeString(s[2:])
	}
	return decodeBase64(s)
}

func decodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0:2] == "0x" {
		return s[2:]
	}
	return s
}
