// Package obfuscate implements the outbound payload pipeline:
//
//	JSON serialize -> protobuf envelope -> gzip -> base64 -> decimal byte stream
//
// The result is obfuscation, not encryption; it carries no confidentiality
// guarantee. Clients implement the exact inverse, so the field order,
// compression algorithm, and separator are all part of the wire contract.
package obfuscate

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrNotSerializable is returned when the payload contains a value JSON
// cannot represent. The failure is total: no truncated output is produced.
var ErrNotSerializable = errors.New("payload not serializable")

// payloadField is the envelope's single field: a length-delimited string
// holding the serialized payload.
const payloadField = 1

// Encode runs the payload through the full pipeline and returns the
// space-separated decimal byte stream. Date/time values render as ISO-8601
// strings via their JSON encoding.
func Encode(payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotSerializable, err)
	}

	envelope := protowire.AppendTag(nil, payloadField, protowire.BytesType)
	envelope = protowire.AppendBytes(envelope, data)

	var compressed bytes.Buffer
	zw := gzip.NewWriter(&compressed)
	if _, err := zw.Write(envelope); err != nil {
		return "", fmt.Errorf("compress envelope: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("compress envelope: %w", err)
	}

	return toNumberStream(base64.StdEncoding.EncodeToString(compressed.Bytes())), nil
}

// toNumberStream maps each byte of the base64 text to its decimal value,
// space-separated. Base64 text is ASCII, so bytes and characters coincide.
func toNumberStream(b64 string) string {
	var sb strings.Builder
	sb.Grow(len(b64) * 4)
	for i := 0; i < len(b64); i++ {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strconv.Itoa(int(b64[i])))
	}
	return sb.String()
}

// Decode is the pipeline inverse: it recovers the serialized JSON payload
// from an encoded stream. It exists to pin the wire contract in tests and to
// document the client-side algorithm.
func Decode(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, errors.New("empty stream")
	}

	fields := strings.Fields(encoded)
	raw := make([]byte, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 || n > 255 {
			return nil, fmt.Errorf("invalid byte value %q at position %d", f, i)
		}
		raw[i] = byte(n)
	}

	compressed, err := base64.StdEncoding.DecodeString(string(raw))
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}

	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("open gzip stream: %w", err)
	}
	envelope, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompress envelope: %w", err)
	}
	if err := zr.Close(); err != nil {
		return nil, fmt.Errorf("close gzip stream: %w", err)
	}

	return parseEnvelope(envelope)
}

// parseEnvelope extracts the payload field from the protobuf envelope.
func parseEnvelope(envelope []byte) ([]byte, error) {
	for len(envelope) > 0 {
		num, typ, n := protowire.ConsumeTag(envelope)
		if n < 0 {
			return nil, fmt.Errorf("parse envelope tag: %w", protowire.ParseError(n))
		}
		envelope = envelope[n:]

		if num == payloadField && typ == protowire.BytesType {
			payload, n := protowire.ConsumeBytes(envelope)
			if n < 0 {
				return nil, fmt.Errorf("parse envelope payload: %w", protowire.ParseError(n))
			}
			return payload, nil
		}

		n = protowire.ConsumeFieldValue(num, typ, envelope)
		if n < 0 {
			return nil, fmt.Errorf("skip envelope field %d: %w", num, protowire.ParseError(n))
		}
		envelope = envelope[n:]
	}

	return nil, errors.New("envelope has no payload field")
}
