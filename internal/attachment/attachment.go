// Package attachment handles files stored inline on appointments as
// base64 data URLs.
package attachment

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"dental-clinic-admin/internal/model"
)

const DefaultMaxSize int64 = 5 * 1024 * 1024

var ErrMalformed = errors.New("malformed data url")

var acceptedTypes = []string{"image/*", "application/pdf", "text/plain"}

// Encode builds an attachment whose Data is a data URL of b.
func Encode(name, mime string, b []byte) model.Attachment {
	return model.Attachment{
		Name: name,
		Type: mime,
		Size: int64(len(b)),
		Data: "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(b),
	}
}

// Decode returns the bytes behind a base64 data URL.
func Decode(att model.Attachment) ([]byte, error) {
	rest, ok := strings.CutPrefix(att.Data, "data:")
	if !ok {
		return nil, ErrMalformed
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, ErrMalformed
	}
	b, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return b, nil
}

// Validate returns the problems that make att unacceptable for upload.
// maxSize <= 0 means DefaultMaxSize.
func Validate(att model.Attachment, maxSize int64) []string {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	var errs []string
	if att.Name == "" {
		errs = append(errs, "File name is required")
	}
	if att.Size > maxSize {
		errs = append(errs, "File size must be less than "+FormatSize(maxSize))
	}
	if !Accepted(att.Type) {
		errs = append(errs, "File type not supported")
	}
	if b, err := Decode(att); err != nil {
		errs = append(errs, "File data is not a base64 data URL")
	} else if int64(len(b)) != att.Size {
		errs = append(errs, "File size does not match its data")
	}
	return errs
}

func Accepted(mime string) bool {
	for _, t := range acceptedTypes {
		if prefix, ok := strings.CutSuffix(t, "/*"); ok {
			if strings.HasPrefix(mime, prefix+"/") {
				return true
			}
			continue
		}
		if t == mime {
			return true
		}
	}
	return false
}

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatSize renders n with up to two decimals, e.g. "1.5 KB".
func FormatSize(n int64) string {
	if n <= 0 {
		return "0 Bytes"
	}
	v, i := float64(n), 0
	for v >= 1024 && i < len(sizeUnits)-1 {
		v /= 1024
		i++
	}
	v = math.Round(v*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + sizeUnits[i]
}

// Extension returns what follows the last dot, or "" for names without one
// and for dotfiles.
func Extension(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 {
		return ""
	}
	return name[i+1:]
}

func IsImage(att model.Attachment) bool { return strings.HasPrefix(att.Type, "image/") }

func IsPDF(att model.Attachment) bool { return att.Type == "application/pdf" }

// ContentID is the CIDv1 (raw, sha2-256) of the decoded bytes.
func ContentID(att model.Attachment) (string, error) {
	b, err := Decode(att)
	if err != nil {
		return "", err
	}
	sum, err := multihash.Sum(b, multihash.SHA2_256, -1)
	if err != nil {
		return "", err
	}
	return cid.NewCidV1(cid.Raw, sum).String(), nil
}
