package models

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf16"
)

var adjectives = []string{
	"Rustic", "Golden", "Crispy", "Smoky", "Spicy",
	"Zesty", "Savory", "Tangy", "Silky", "Toasty",
	"Peppy", "Hearty", "Mellow", "Sunny", "Lively",
	"Gentle", "Swift", "Daring", "Jolly", "Cosmic",
}

var nouns = []string{
	"Chef", "Baker", "Pepper", "Sage", "Basil",
	"Truffle", "Mango", "Ginger", "Olive", "Saffron",
	"Walnut", "Fennel", "Thyme", "Pretzel", "Noodle",
	"Waffle", "Biscuit", "Chutney", "Sorbet", "Dumpling",
}

// hashString is a 32-bit polynomial hash over UTF-16 code units.
func hashString(s string) int32 {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = int32(c) + (h << 5) - h
	}
	return h
}

func abs(v int32) int64 {
	x := int64(v)
	if x < 0 {
		return -x
	}
	return x
}

// DisplayNameFor derives a stable name such as "CrispyWaffle" from an owner
// id. The same id always yields the same name.
func DisplayNameFor(ownerID string) string {
	h := hashString(ownerID)
	adj := adjectives[abs(h)%int64(len(adjectives))]
	noun := nouns[abs(h>>8)%int64(len(nouns))]
	return adj + noun
}

// ColorFor picks a stable HSL background color for a generated avatar.
func ColorFor(ownerID string) string {
	return fmt.Sprintf("hsl(%d, 55%%, 50%%)", abs(hashString(ownerID))%360)
}

var camelWord = regexp.MustCompile(`[A-Z][a-z]+`)

// Initials returns one or two upper-case initials of a display name.
// CamelCase names split on word boundaries.
func Initials(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "?"
	}
	if parts := camelWord.FindAllString(name, 2); len(parts) == 2 {
		return strings.ToUpper(parts[0][:1] + parts[1][:1])
	}
	if words := strings.Fields(name); len(words) >= 2 {
		return strings.ToUpper(string([]rune(words[0])[0]) + string([]rune(words[1])[0]))
	}
	r := []rune(name)
	if len(r) > 2 {
		r = r[:2]
	}
	return strings.ToUpper(string(r))
}

// GeneratedAvatar is the default avatar for a newly created profile.
func GeneratedAvatar(ownerID string) Avatar {
	return Avatar{Type: AvatarGenerated, BgColor: ColorFor(ownerID)}
}
