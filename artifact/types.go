package artifact

import (
	"encoding/binary"
	"errors"
	"sort"

	"github.com/latticeforge/kernel/hash"
)

// writeField mixes a length-prefixed field into h, guarding against
// boundary-collision between adjacent fields the same way
// hash.hashPair's internal length prefix does for Merkle nodes.
func writeField(buf []byte, s string) []byte {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(s)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, s...)
	return buf
}

// Language identifies a programming language for CodeContent.
type Language string

const (
	LanguageGo         Language = "go"
	LanguageRust       Language = "rust"
	LanguageTypeScript Language = "typescript"
	LanguagePython     Language = "python"
	LanguageUnknown    Language = "unknown"
)

// CodeContent is source code content addressed by its exact byte sequence.
//
// Hashing decision: the hash covers SourceText verbatim, including
// whitespace and comments — two syntactically-identical files that differ
// only in formatting hash differently. This mirrors how source control
// already treats files and keeps the hash function trivially inspectable;
// semantic (AST-normalized) hashing is not attempted.
type CodeContent struct {
	Language   Language
	SourceText string
}

func (c CodeContent) TypeID() string { return "code" }

func (c CodeContent) ContentHash() hash.Hash {
	buf := writeField(nil, string(c.Language))
	buf = writeField(buf, c.SourceText)
	return hash.Compute(buf)
}

func (c CodeContent) Validate() error {
	return nil
}

// ConfigFormat identifies the serialization format of ConfigContent.
type ConfigFormat string

const (
	ConfigFormatJSON ConfigFormat = "json"
	ConfigFormatYAML ConfigFormat = "yaml"
	ConfigFormatTOML ConfigFormat = "toml"
)

// ConfigContent is structured configuration content.
//
// Hashing decision: Entries is hashed key-sorted so that map iteration order
// never affects the hash, but each value's own formatting (e.g. "1" vs
// "1.0") is hashed verbatim as text — only insertion-order/whitespace at the
// map level is normalized, not value-level formatting.
type ConfigContent struct {
	Format  ConfigFormat
	Entries map[string]string
}

func (c ConfigContent) TypeID() string { return "config" }

func (c ConfigContent) ContentHash() hash.Hash {
	keys := make([]string, 0, len(c.Entries))
	for k := range c.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := writeField(nil, string(c.Format))
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(keys)))
	buf = append(buf, lenBuf[:]...)
	for _, k := range keys {
		buf = writeField(buf, k)
		buf = writeField(buf, c.Entries[k])
	}
	return hash.Compute(buf)
}

func (c ConfigContent) Validate() error {
	if c.Format == "" {
		return errors.New("artifact: config content requires a format")
	}
	return nil
}

// SpecFormat identifies the document format of SpecContent.
type SpecFormat string

const (
	SpecFormatMarkdown SpecFormat = "markdown"
	SpecFormatDesignDoc SpecFormat = "design_doc"
	SpecFormatAPISpec   SpecFormat = "api_spec"
	SpecFormatTestSpec  SpecFormat = "test_spec"
)

// SpecContent is free-form specification/design document text.
//
// Hashing decision: hashed verbatim, same as CodeContent — whitespace-only
// edits to a spec document change its hash.
type SpecContent struct {
	Format SpecFormat
	Body   string
}

func (c SpecContent) TypeID() string { return "spec" }

func (c SpecContent) ContentHash() hash.Hash {
	buf := writeField(nil, string(c.Format))
	buf = writeField(buf, c.Body)
	return hash.Compute(buf)
}

func (c SpecContent) Validate() error {
	return nil
}

// BinaryContent is opaque binary content addressed by its raw bytes.
//
// Hashing decision: the hash covers Bytes exactly; MimeType is metadata and
// does not participate in the hash, so re-tagging a blob's MIME type
// without touching its bytes does not change identity.
type BinaryContent struct {
	MimeType string
	Bytes    []byte
}

func (c BinaryContent) TypeID() string { return "binary" }

func (c BinaryContent) ContentHash() hash.Hash {
	return hash.Compute(c.Bytes)
}

func (c BinaryContent) Validate() error {
	return nil
}
