package credentials

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"
)

// InviteAlphabet omits characters that are easy to confuse when read aloud
// or copied by hand (0/O, 1/I/L).
const InviteAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

var (
	inviteGroups      = []int{3, 4, 3}
	inviteCodePattern = regexp.MustCompile(`^[A-Z2-9]{3}-[A-Z2-9]{4}-[A-Z2-9]{3}$`)
)

// GenerateInviteCode returns a random code such as "K7Q-MX4P-2HD"
func GenerateInviteCode() (string, error) {
	var b strings.Builder
	max := big.NewInt(int64(len(InviteAlphabet)))

	for g, n := range inviteGroups {
		if g > 0 {
			b.WriteByte('-')
		}
		for i := 0; i < n; i++ {
			num, err := rand.Int(rand.Reader, max)
			if err != nil {
				return "", err
			}
			b.WriteByte(InviteAlphabet[num.Int64()])
		}
	}

	return b.String(), nil
}

// NormalizeInviteCode trims and uppercases user input
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidInviteCode reports whether code has the XXX-XXXX-XXX shape
func ValidInviteCode(code string) bool {
	return inviteCodePattern.MatchString(code)
}
