package dedup

import (
	"regexp"
	"strings"
)

var nonPhoneticChars = regexp.MustCompile(`[^a-z0-9\s]+`)

// NormalizeForPhonetic lowercases label and strips punctuation, leaving
// word boundaries intact so multi-word labels phoneticize word by word.
func NormalizeForPhonetic(label string) string {
	lower := strings.ToLower(label)
	stripped := nonPhoneticChars.ReplaceAllString(lower, " ")
	return strings.Join(strings.Fields(stripped), " ")
}

// DoubleMetaphone returns the primary double-metaphone code for label,
// computed word by word and concatenated. Only the primary code is
// produced; the algorithm's alternate-code branch is not needed here
// since blocking only consults the primary key.
func DoubleMetaphone(label string) string {
	var b strings.Builder
	for _, word := range strings.Fields(NormalizeForPhonetic(label)) {
		b.WriteString(metaphoneWord(word))
	}
	return b.String()
}

func metaphoneWord(word string) string {
	if word == "" {
		return ""
	}
	runes := []rune(word)
	n := len(runes)
	var code strings.Builder
	i := 0

	isVowel := func(r rune) bool {
		switch r {
		case 'a', 'e', 'i', 'o', 'u', 'y':
			return true
		}
		return false
	}
	at := func(idx int) rune {
		if idx < 0 || idx >= n {
			return 0
		}
		return runes[idx]
	}

	if n >= 2 {
		switch {
		case strings.HasPrefix(word, "kn"), strings.HasPrefix(word, "gn"),
			strings.HasPrefix(word, "pn"), strings.HasPrefix(word, "wr"):
			i = 1
		case strings.HasPrefix(word, "wh"):
			code.WriteByte('W')
			i = 2
		case at(0) == 'x':
			code.WriteByte('S')
			i = 1
		}
	}

	for i < n && code.Len() < 8 {
		r := at(i)
		switch {
		case isVowel(r):
			if i == 0 {
				code.WriteByte('A')
			}
			i++
		case r == 'b':
			code.WriteByte('B')
			i++
			if at(i) == 'b' {
				i++
			}
		case r == 'c':
			switch {
			case at(i+1) == 'i' && at(i+2) == 'a':
				code.WriteByte('X')
				i += 3
			case at(i+1) == 'h':
				code.WriteByte('X')
				i += 2
			case at(i+1) == 'i' || at(i+1) == 'e' || at(i+1) == 'y':
				code.WriteByte('S')
				i += 2
			default:
				code.WriteByte('K')
				i++
				if at(i) == 'c' {
					i++
				}
			}
		case r == 'd':
			if at(i+1) == 'g' && (at(i+2) == 'e' || at(i+2) == 'i' || at(i+2) == 'y') {
				code.WriteByte('J')
				i += 3
			} else {
				code.WriteByte('T')
				i++
				if at(i) == 'd' {
					i++
				}
			}
		case r == 'g':
			switch {
			case at(i+1) == 'h' && !(i+2 < n && isVowel(at(i+2))):
				i += 2
			case at(i+1) == 'n':
				i += 2
			case at(i+1) == 'e' || at(i+1) == 'i' || at(i+1) == 'y':
				code.WriteByte('J')
				i += 2
			default:
				code.WriteByte('K')
				i++
				if at(i) == 'g' {
					i++
				}
			}
		case r == 'h':
			if isVowel(at(i - 1)) && isVowel(at(i+1)) {
				code.WriteByte('H')
			}
			i++
		case r == 'j':
			code.WriteByte('J')
			i++
		case r == 'k':
			code.WriteByte('K')
			i++
			if at(i) == 'k' {
				i++
			}
		case r == 'l':
			code.WriteByte('L')
			i++
			if at(i) == 'l' {
				i++
			}
		case r == 'm':
			code.WriteByte('M')
			i++
			if at(i) == 'm' {
				i++
			}
		case r == 'n':
			code.WriteByte('N')
			i++
			if at(i) == 'n' {
				i++
			}
		case r == 'p':
			if at(i+1) == 'h' {
				code.WriteByte('F')
				i += 2
			} else {
				code.WriteByte('P')
				i++
				if at(i) == 'p' {
					i++
				}
			}
		case r == 'q':
			code.WriteByte('K')
			i++
		case r == 'r':
			code.WriteByte('R')
			i++
			if at(i) == 'r' {
				i++
			}
		case r == 's':
			switch {
			case at(i+1) == 'h':
				code.WriteByte('X')
				i += 2
			case at(i+1) == 'i' && (at(i+2) == 'o' || at(i+2) == 'a'):
				code.WriteByte('X')
				i += 3
			default:
				code.WriteByte('S')
				i++
				if at(i) == 's' {
					i++
				}
			}
		case r == 't':
			switch {
			case at(i+1) == 'i' && (at(i+2) == 'o' || at(i+2) == 'a'):
				code.WriteByte('X')
				i += 3
			case at(i+1) == 'h':
				code.WriteByte('0')
				i += 2
			default:
				code.WriteByte('T')
				i++
				if at(i) == 't' {
					i++
				}
			}
		case r == 'v':
			code.WriteByte('F')
			i++
			if at(i) == 'v' {
				i++
			}
		case r == 'w':
			if isVowel(at(i + 1)) {
				code.WriteByte('W')
			}
			i++
		case r == 'x':
			code.WriteString("KS")
			i++
		case r == 'z':
			code.WriteByte('S')
			i++
		default:
			i++
		}
	}

	out := code.String()
	if len(out) > 8 {
		out = out[:8]
	}
	return out
}

// PhoneticBucketKeys returns every distinct bucket key label's double
// metaphone code belongs to. Single-code callers use the first element.
func PhoneticBucketKeys(label string) []string {
	code := DoubleMetaphone(label)
	if code == "" {
		return nil
	}
	return []string{code}
}

// BucketByPhonetic groups labels sharing a double-metaphone code.
func BucketByPhonetic(labels []string) map[string][]string {
	buckets := map[string][]string{}
	for _, label := range labels {
		for _, key := range PhoneticBucketKeys(label) {
			buckets[key] = append(buckets[key], label)
		}
	}
	return buckets
}
