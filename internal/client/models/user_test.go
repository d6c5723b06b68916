package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{in: "seller", want: RoleSeller},
		{in: " Customer ", want: RoleCustomer},
		{in: "", wantErr: true},
		{in: "admin", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownRole)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUserProfile_DisplayName(t *testing.T) {
	var nilUser *UserProfile
	assert.Equal(t, "", nilUser.DisplayName())
	assert.Equal(t, "a@b.c", (&UserProfile{Email: "a@b.c"}).DisplayName())
	assert.Equal(t, "Ann Lee", (&UserProfile{Email: "a@b.c", FirstName: "Ann", LastName: "Lee"}).DisplayName())
}

func TestUserProfile_CloneIsIndependent(t *testing.T) {
	u := &UserProfile{ID: "1", Email: "a@b.c", Role: RoleSeller}
	c := u.Clone()
	c.Email = "changed"
	assert.Equal(t, "a@b.c", u.Email)

	var nilUser *UserProfile
	assert.Nil(t, nilUser.Clone())
}
