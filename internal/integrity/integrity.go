// Package integrity verifies downloaded files against checksums, either
// the md5 the content API reports per file or a user-supplied value.
package integrity

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/zeebo/blake3"
)

// Algorithm identifies a supported hash algorithm.
type Algorithm string

const (
	AlgorithmMD5    Algorithm = "md5"
	AlgorithmSHA1   Algorithm = "sha1"
	AlgorithmSHA256 Algorithm = "sha256"
	AlgorithmSHA512 Algorithm = "sha512"
	AlgorithmBLAKE3 Algorithm = "blake3"
)

// ErrMismatch is wrapped by verification failures.
var ErrMismatch = errors.New("checksum mismatch")

// Checksum pairs an algorithm with its hex digest.
type Checksum struct {
	Algorithm Algorithm
	Value     string
}

// String returns the "algorithm:value" form.
func (c *Checksum) String() string {
	return fmt.Sprintf("%s:%s", c.Algorithm, c.Value)
}

func newHasher(algorithm Algorithm) (hash.Hash, error) {
	switch algorithm {
	case AlgorithmMD5:
		return md5.New(), nil
	case AlgorithmSHA1:
		return sha1.New(), nil
	case AlgorithmSHA256:
		return sha256.New(), nil
	case AlgorithmSHA512:
		return sha512.New(), nil
	case AlgorithmBLAKE3:
		return blake3.New(), nil
	default:
		return nil, fmt.Errorf("unsupported checksum algorithm: %s", algorithm)
	}
}

// Parse parses "algorithm:value". A bare hex value has its algorithm
// guessed from the digest length; blake3 and sha256 digests are both 64
// hex chars, so blake3 always needs the explicit prefix.
func Parse(s string) (*Checksum, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return nil, errors.New("empty checksum")
	}

	var algorithm Algorithm
	value := s
	if i := strings.IndexByte(s, ':'); i >= 0 {
		algorithm = Algorithm(s[:i])
		value = s[i+1:]
		switch algorithm {
		case AlgorithmMD5, AlgorithmSHA1, AlgorithmSHA256, AlgorithmSHA512, AlgorithmBLAKE3:
		default:
			return nil, fmt.Errorf("unsupported checksum algorithm: %s", algorithm)
		}
	} else {
		switch len(value) {
		case 32:
			algorithm = AlgorithmMD5
		case 40:
			algorithm = AlgorithmSHA1
		case 64:
			algorithm = AlgorithmSHA256
		case 128:
			algorithm = AlgorithmSHA512
		default:
			return nil, fmt.Errorf("cannot infer algorithm from %d-char digest", len(value))
		}
	}

	if _, err := hex.DecodeString(value); err != nil {
		return nil, fmt.Errorf("invalid checksum hex value: %w", err)
	}

	return &Checksum{Algorithm: algorithm, Value: value}, nil
}

// HashFile computes the digest of the file at path.
func HashFile(path string, algorithm Algorithm) (*Checksum, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	hasher, err := newHasher(algorithm)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(hasher, f); err != nil {
		return nil, fmt.Errorf("hashing file: %w", err)
	}

	return &Checksum{
		Algorithm: algorithm,
		Value:     hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// VerifyFile checks the file at path against the expected checksum and
// returns an error wrapping ErrMismatch when the digests differ.
func VerifyFile(path string, expected *Checksum) error {
	if expected == nil {
		return nil
	}

	actual, err := HashFile(path, expected.Algorithm)
	if err != nil {
		return err
	}
	if actual.Value != expected.Value {
		return fmt.Errorf("%w: %s is %s, expected %s",
			ErrMismatch, path, actual.Value, expected.Value)
	}
	return nil
}

// VerifyMD5 checks a file against the bare hex md5 the content API reports.
// An empty expected value verifies trivially.
func VerifyMD5(path, expected string) error {
	if expected == "" {
		return nil
	}
	return VerifyFile(path, &Checksum{
		Algorithm: AlgorithmMD5,
		Value:     strings.ToLower(expected),
	})
}
