package slogx_test

import (
	"testing"

	"github.com/huzilerz/session-core/infra/log/slogx"
)

func TestSecureString(t *testing.T) {
	tests := []struct {
		name string // description of this test case
		// Named input parameters for target function.
		raw  string
		opts []slogx.SecureStringOption
		want string
	}{
		{
			name: "short",
			raw:  "short",
			opts: []slogx.SecureStringOption{},
			want: "########hort",
		},
		{
			name: "general",
			raw:  "my_secret_token_to_be_hidden",
			opts: []slogx.SecureStringOption{},
			want: "my_secre########dden",
		},
		{
			name: "custom rune",
			raw:  "my_secret_token_to_be_hidden",
			opts: []slogx.SecureStringOption{
				slogx.SecureStringRune('*'),
			},
			want: "my_secre********dden",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := slogx.SecureString(tt.raw, tt.opts...)
			if got != tt.want {
				t.Errorf("SecureString() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestToken(t *testing.T) {
	got := slogx.Token("eyJhbGciOiJIUzI1NiJ9.payload.signature").String()
	if got != "eyJhbG########" {
		t.Errorf("Token() = %v", got)
	}
}
