package attachment_test

import (
	"strings"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dental-clinic-admin/internal/attachment"
	"dental-clinic-admin/internal/model"
)

func TestEncodeDecode(t *testing.T) {
	att := attachment.Encode("notes.txt", "text/plain", []byte("hello"))
	assert.Equal(t, "data:text/plain;base64,aGVsbG8=", att.Data)
	assert.Equal(t, int64(5), att.Size)

	b, err := attachment.Decode(att)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))
}

func TestDecodeMalformed(t *testing.T) {
	for _, data := range []string{"", "hello", "data:text/plain,hello", "data:text/plain;base64,@@@"} {
		_, err := attachment.Decode(model.Attachment{Data: data})
		assert.ErrorIs(t, err, attachment.ErrMalformed, data)
	}
}

func TestValidate(t *testing.T) {
	ok := attachment.Encode("scan.png", "image/png", []byte{1, 2, 3})
	assert.Empty(t, attachment.Validate(ok, 0))

	tests := []struct {
		name string
		att  model.Attachment
		max  int64
		want string
	}{
		{"too big", attachment.Encode("a.pdf", "application/pdf", make([]byte, 11)), 10, "File size must be less than 10 Bytes"},
		{"bad type", attachment.Encode("a.exe", "application/x-msdownload", []byte{1}), 0, "File type not supported"},
		{"no name", attachment.Encode("", "text/plain", []byte{1}), 0, "File name is required"},
		{"size lies", model.Attachment{Name: "a.txt", Type: "text/plain", Size: 99, Data: "data:text/plain;base64,aGk="}, 0, "File size does not match its data"},
		{"not a data url", model.Attachment{Name: "a.txt", Type: "text/plain", Data: "hi"}, 0, "File data is not a base64 data URL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, attachment.Validate(tt.att, tt.max), tt.want)
		})
	}
}

func TestAccepted(t *testing.T) {
	assert.True(t, attachment.Accepted("image/jpeg"))
	assert.True(t, attachment.Accepted("application/pdf"))
	assert.True(t, attachment.Accepted("text/plain"))
	assert.False(t, attachment.Accepted("imagex/png"))
	assert.False(t, attachment.Accepted("text/html"))
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 Bytes"},
		{500, "500 Bytes"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5 MB"},
		{1234567, "1.18 MB"},
		{3 * 1024 * 1024 * 1024, "3 GB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, attachment.FormatSize(tt.n))
	}
}

func TestExtensionAndKinds(t *testing.T) {
	assert.Equal(t, "pdf", attachment.Extension("xray_report.pdf"))
	assert.Equal(t, "gz", attachment.Extension("a.tar.gz"))
	assert.Equal(t, "", attachment.Extension("README"))
	assert.Equal(t, "", attachment.Extension(".env"))

	assert.True(t, attachment.IsImage(model.Attachment{Type: "image/gif"}))
	assert.False(t, attachment.IsImage(model.Attachment{Type: "application/pdf"}))
	assert.True(t, attachment.IsPDF(model.Attachment{Type: "application/pdf"}))
}

func TestContentID(t *testing.T) {
	a := attachment.Encode("a.txt", "text/plain", []byte("same bytes"))
	b := attachment.Encode("b.bin", "image/png", []byte("same bytes"))
	c := attachment.Encode("c.txt", "text/plain", []byte("other bytes"))

	ida, err := attachment.ContentID(a)
	require.NoError(t, err)
	idb, err := attachment.ContentID(b)
	require.NoError(t, err)
	idc, err := attachment.ContentID(c)
	require.NoError(t, err)

	assert.Equal(t, ida, idb)
	assert.NotEqual(t, ida, idc)
	assert.True(t, strings.HasPrefix(ida, "b"), ida)

	parsed, err := cid.Decode(ida)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), parsed.Version())
	assert.Equal(t, uint64(cid.Raw), parsed.Type())

	_, err = attachment.ContentID(model.Attachment{Data: "nope"})
	assert.Error(t, err)
}
