package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAdmin(t *testing.T) {
	cases := []struct {
		email, domain string
		want          bool
	}{
		{"kim@admin.library.kr", "", true},
		{"KIM@Admin.Library.KR", "", true},
		{"kim@library.kr", "", false},
		{"@admin.library.kr", "", false},
		{"kim@evil-admin.library.kr", "", false},
		{"ops@staff.example", "staff.example", true},
		{"", "", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IsAdmin(tc.email, tc.domain), tc.email)
	}
}
