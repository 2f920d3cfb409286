package staging

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/HH-Alex-Ma/xarl-email-agent/internal/utils"
)

const (
	dateLimit    = 20
	addressLimit = 20
	subjectLimit = 30
)

var unsafeChars = regexp.MustCompile(`[\\/:*?"<>|]`)

// Sanitize replaces every character that is invalid in Windows or Unix
// file names with an underscore
func Sanitize(name string) string {
	return unsafeChars.ReplaceAllString(name, "_")
}

// FolderName derives the staged folder name of a message from its Date,
// From, To and Subject headers. It is a pure function of its inputs, so
// distinct messages with the same quadruple share a folder.
func FolderName(date, from, to, subject string) string {
	d := strings.ReplaceAll(date, ",", "")
	d = strings.ReplaceAll(d, ":", "")
	d = utils.TruncateRunes(strings.ReplaceAll(d, " ", "_"), dateLimit)

	f := utils.TruncateRunes(displayPart(from), addressLimit)
	t := utils.TruncateRunes(displayPart(to), addressLimit)
	s := utils.TruncateRunes(strings.ReplaceAll(subject, " ", "_"), subjectLimit)

	return Sanitize(fmt.Sprintf("%s_%s_%s_%s", d, f, t, s))
}

// displayPart keeps the text in front of the first angle-bracketed address
func displayPart(address string) string {
	if i := strings.Index(address, "<"); i >= 0 {
		address = address[:i]
	}
	return strings.ReplaceAll(strings.TrimSpace(address), " ", "_")
}

// Namer hands out folder names for one fetch pass, suffixing repeats of a
// derived key with _2, _3, ... so two messages of the same pass never
// share a folder
type Namer struct {
	used map[string]struct{}
}

// NewNamer creates a new Namer
func NewNamer() *Namer {
	return &Namer{used: make(map[string]struct{})}
}

// Allocate returns name, or the first free suffixed variant of it
func (n *Namer) Allocate(name string) string {
	candidate := name
	for i := 2; ; i++ {
		if _, taken := n.used[candidate]; !taken {
			n.used[candidate] = struct{}{}
			return candidate
		}
		candidate = fmt.Sprintf("%s_%d", name, i)
	}
}
