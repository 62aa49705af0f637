package utils

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"io"
)

// CompressBytes gzips data with BestCompression and returns it base64 encoded,
// so the output can live inside JSON cache entries.
func CompressBytes(data []byte) (string, error) {
	var buf bytes.Buffer
	gzipWriter, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return "", err
	}
	if _, err := gzipWriter.Write(data); err != nil {
		return "", err
	}
	if err := gzipWriter.Close(); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecompressBytes reverses CompressBytes.
func DecompressBytes(input string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(input)
	if err != nil {
		return nil, err
	}
	gzipReader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gzipReader.Close()
	return io.ReadAll(gzipReader)
}

// CompressString is CompressBytes for string payloads.
func CompressString(input string) (string, error) {
	return CompressBytes([]byte(input))
}

// DecompressString is DecompressBytes for string payloads.
func DecompressString(input string) (string, error) {
	out, err := DecompressBytes(input)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
