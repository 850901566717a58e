// Package transformer provides the transformers that turn a file reference into
// the payload the sink writes: raw bytes, decoded text, or the file reference itself.
package transformer

import (
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"

	storage "github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/storage"
	model "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/domain/model"
	port "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/port"
	exception "github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/exception"
	logger "github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/logger"
)

// Reference names.
const (
	FileToBytesRef  = "fileToBytes"
	FileToStringRef = "fileToString"
	PassThroughRef  = "passThrough"
	CopyHandlerRef  = "copyHandler"
)

// DefaultCharset is used when no charset property is given.
const DefaultCharset = "UTF-8"

// LookupEncoding returns the encoding registered under an IANA or WHATWG name.
// UTF-8 returns the no-op encoding.
func LookupEncoding(charset string) (encoding.Encoding, error) {
	if charset == "" || strings.EqualFold(charset, "utf-8") || strings.EqualFold(charset, "utf8") {
		return unicode.UTF8, nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset '%s': %w", charset, err)
	}
	return enc, nil
}

// download opens the source object referenced by msg.
func download(ctx context.Context, resolver storage.StorageConnectionResolver, msg *model.FileMessage) (io.ReadCloser, error) {
	conn, err := resolver.ResolveStorageConnection(ctx, msg.SourceRef)
	if err != nil {
		return nil, err
	}
	return conn.Download(ctx, "", msg.ObjectName)
}

// FileToBytes loads the referenced file into memory unchanged.
type FileToBytes struct {
	resolver storage.StorageConnectionResolver
}

// NewFileToBytes creates a FileToBytes transformer.
func NewFileToBytes(resolver storage.StorageConnectionResolver) *FileToBytes {
	return &FileToBytes{resolver: resolver}
}

// Transform implements port.Transformer. Messages already carrying bytes pass through.
func (t *FileToBytes) Transform(ctx context.Context, msg *model.FileMessage) (*model.FileMessage, error) {
	if msg.Kind == model.PayloadBytes {
		return msg, nil
	}
	r, err := download(ctx, t.resolver, msg)
	if err != nil {
		return nil, exception.NewBatchError("transformer", fmt.Sprintf("Failed to open '%s'", msg.ObjectName), err, true, false)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, exception.NewBatchError("transformer", fmt.Sprintf("Failed to read '%s'", msg.ObjectName), err, true, false)
	}
	msg.Kind = model.PayloadBytes
	msg.Bytes = data
	msg.Text = ""
	return msg, nil
}

// FileToString loads the referenced file and decodes it from its charset.
type FileToString struct {
	resolver storage.StorageConnectionResolver
	charset  string
	encoding encoding.Encoding
}

// NewFileToString creates a FileToString transformer for charset.
func NewFileToString(resolver storage.StorageConnectionResolver, charset string) (*FileToString, error) {
	if charset == "" {
		charset = DefaultCharset
	}
	enc, err := LookupEncoding(charset)
	if err != nil {
		return nil, err
	}
	return &FileToString{resolver: resolver, charset: charset, encoding: enc}, nil
}

// Transform implements port.Transformer.
func (t *FileToString) Transform(ctx context.Context, msg *model.FileMessage) (*model.FileMessage, error) {
	var (
		data []byte
		err  error
	)
	switch msg.Kind {
	case model.PayloadText:
		return msg, nil
	case model.PayloadBytes:
		data = msg.Bytes
	default:
		r, openErr := download(ctx, t.resolver, msg)
		if openErr != nil {
			return nil, exception.NewBatchError("transformer", fmt.Sprintf("Failed to open '%s'", msg.ObjectName), openErr, true, false)
		}
		data, err = io.ReadAll(r)
		r.Close()
		if err != nil {
			return nil, exception.NewBatchError("transformer", fmt.Sprintf("Failed to read '%s'", msg.ObjectName), err, true, false)
		}
	}

	decoded, err := t.encoding.NewDecoder().Bytes(data)
	if err != nil {
		return nil, exception.NewBatchError("transformer", fmt.Sprintf("Failed to decode '%s' as %s", msg.ObjectName, t.charset), err, true, false)
	}
	msg.Kind = model.PayloadText
	msg.Text = string(decoded)
	msg.Charset = t.charset
	msg.Bytes = nil
	return msg, nil
}

// PassThrough leaves the message untouched. The sink streams file references directly.
type PassThrough struct{}

// Transform implements port.Transformer.
func (PassThrough) Transform(ctx context.Context, msg *model.FileMessage) (*model.FileMessage, error) {
	return msg, nil
}

// CopyHandler logs every message on its way to the sink.
// With Uppercase set, text payloads are upper-cased; other payloads are never modified.
type CopyHandler struct {
	Uppercase bool
}

// Transform implements port.Transformer.
func (h CopyHandler) Transform(ctx context.Context, msg *model.FileMessage) (*model.FileMessage, error) {
	switch msg.Kind {
	case model.PayloadBytes:
		logger.Infof("Copying %d bytes ...", len(msg.Bytes))
	case model.PayloadText:
		logger.Infof("Copying text: %s ...", abbreviate(msg.Text, 64))
		if h.Uppercase {
			msg.Text = strings.ToUpper(msg.Text)
		}
	default:
		logger.Infof("Copying file: %s ...", msg.ObjectName)
	}
	return msg, nil
}

func abbreviate(s string, limit int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}

var (
	_ port.Transformer = (*FileToBytes)(nil)
	_ port.Transformer = (*FileToString)(nil)
	_ port.Transformer = PassThrough{}
	_ port.Transformer = CopyHandler{}
)
