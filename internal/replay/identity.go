package replay

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/starford/legacygit/internal/models"
)

const (
	// DefaultEmailDomain is appended to derived author e-mails when none is configured.
	DefaultEmailDomain = "legacy.local"
	// DefaultBootstrapMessage labels the empty root commit.
	DefaultBootstrapMessage = "First init"

	unknownAuthor = "unknown"
	noComment     = "no comment"
)

// Message formats the commit message for a record: "[reference] comment".
func Message(reference, comment string) string {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		comment = noComment
	}
	return "[" + reference + "] " + comment
}

// AuthorName returns the trimmed author or a placeholder when empty.
func AuthorName(author string) string {
	author = strings.TrimSpace(author)
	if author == "" {
		return unknownAuthor
	}
	return author
}

// Email derives an address from an author name: diacritics and whitespace
// removed, lower-cased, then "@domain".
func Email(author, domain string) string {
	if domain == "" {
		domain = DefaultEmailDomain
	}
	local := foldAccents(AuthorName(author))
	local = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, local)
	return local + "@" + domain
}

func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Intent builds the commit intent for rec on branch.
func Intent(rec models.VersionRecord, branch, domain string) models.CommitIntent {
	return models.CommitIntent{
		When:        rec.CreatedAt,
		Message:     Message(rec.Reference, rec.Comment),
		AuthorName:  AuthorName(rec.Author),
		AuthorEmail: Email(rec.Author, domain),
		BranchName:  branch,
	}
}
