package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	cases := map[string]struct {
		password string
		ok       bool
	}{
		"all classes":            {"Kampala-Hub-2024", true},
		"twelve runes":           {"Gulu#Tech001", true},
		"multibyte counts runes": {"Ñtinda-Hub-9x", true},
		"longest allowed":        {"K" + strings.Repeat("a", 125) + "1!", true},
		"eleven runes":           {"Gulu#Tech01", false},
		"over the limit":         {"K" + strings.Repeat("a", 126) + "1!", false},
		"lower case only":        {"kampala-hub-2024", false},
		"upper case only":        {"KAMPALA-HUB-2024", false},
		"no digit":               {"Kampala-Hub-Go", false},
		"no symbol":              {"KampalaHub2024", false},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := ValidatePassword(tc.password)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateUsername("outbox_hub"))
	assert.NoError(t, ValidateUsername("dev-ug-42"))

	for _, bad := range []string{"ug", "kampala.dev", "_outbox", "outbox-", strings.Repeat("a", 31)} {
		assert.Error(t, ValidateUsername(bad), bad)
	}
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateEmail("founder@startup.co.ug"))

	longest := strings.Repeat("a", 64) + "@" + strings.Repeat("b", 185) + ".com"
	assert.Len(t, longest, 254)
	assert.NoError(t, ValidateEmail(longest))
	assert.Error(t, ValidateEmail(longest+"m"))

	for _, bad := range []string{"not-an-email", "jobs@", "jobs@@atlas.ug", "jobs desk@atlas.ug", "jobs@atlas.ug."} {
		assert.Error(t, ValidateEmail(bad), bad)
	}
}
