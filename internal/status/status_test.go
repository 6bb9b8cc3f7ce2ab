package status

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "bare",
			err:  New(Failure, "bcf_hdr_sync"),
			want: "bcf_hdr_sync",
		},
		{
			name: "invalid reference allele",
			err: &Error{Kind: Invalid, Message: "invalid reference allele",
				Dataset: "NA12878", Alleles: []string{"N"}, Range: "21:1000-1000"},
			want: "invalid reference allele (NA12878 N@21:1000-1000)",
		},
		{
			name: "inconsistent refs",
			err: &Error{Kind: Invalid, Message: "data sets contain inconsistent reference alleles",
				Range: "21:1000-1000", Alleles: []string{"A", "G"}},
			want: "data sets contain inconsistent reference alleles (A G 21:1000-1000)",
		},
		{
			name: "io with cause",
			err:  &Error{Kind: IOError, Message: "write record", Detail: "out.vcf", Err: io.ErrShortWrite},
			want: "write record (out.vcf): short write",
		},
		{
			name: "kind only",
			err:  &Error{Kind: NotFound},
			want: "NotFound",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestError_IsKind(t *testing.T) {
	err := fmt.Errorf("resolve: %w", Newf(NotFound, "unknown sample set", "trio"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrInvalid))
	assert.Equal(t, NotFound, KindOf(err))
	assert.Equal(t, Kind(0), KindOf(io.EOF))
}

func TestError_Unwrap(t *testing.T) {
	err := Wrap(IOError, "close output", io.ErrClosedPipe)
	assert.True(t, errors.Is(err, io.ErrClosedPipe))
	assert.True(t, errors.Is(err, ErrIOError))
}

func TestError_MarshalLogObject(t *testing.T) {
	enc := zapcore.NewMapObjectEncoder()
	err := &Error{Kind: Invalid, Message: "invalid reference allele",
		Dataset: "ds1", Range: "21:5-5", Alleles: []string{"N"}}

	assert.NoError(t, err.MarshalLogObject(enc))
	assert.Equal(t, "Invalid", enc.Fields["kind"])
	assert.Equal(t, "ds1", enc.Fields["dataset"])
	assert.Equal(t, "21:5-5", enc.Fields["range"])
	assert.Equal(t, "N", enc.Fields["alleles"])
}
