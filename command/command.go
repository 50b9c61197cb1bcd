/*
Package command classifies query text into the small set of operations a Redash connection supports.

Redash has no SQL endpoint of its own, so the text is only sniffed, never parsed:

	SHOW DATABASES                      lists data sources
	SHOW TABLES                         lists saved queries
	EXPLAIN <text>                      runs <text> under an "EXPLAIN" named query
	SELECT ... FROM query_<id> ...      runs saved query <id>
	SELECT ...                          runs the text as an ad-hoc query

Anything else is rejected with errors.KSyntax before any network call is made.
*/
package command

import (
	"strings"

	"github.com/manu156/redash-go/errors"
)

// Kind is the operation a Command asks for.
type Kind uint8

const (
	// Unknown is the zero Kind. Classify never returns it.
	Unknown Kind = iota
	// ListDataSources lists the configured data sources.
	ListDataSources
	// ListQueries lists the saved queries.
	ListQueries
	// Explain runs Text as a named "EXPLAIN" query.
	Explain
	// ExecuteByID runs the saved query QueryID.
	ExecuteByID
	// ExecuteAdHoc runs Text as a new query.
	ExecuteAdHoc
)

func (k Kind) String() string {
	switch k {
	case ListDataSources:
		return "ListDataSources"
	case ListQueries:
		return "ListQueries"
	case Explain:
		return "Explain"
	case ExecuteByID:
		return "ExecuteByID"
	case ExecuteAdHoc:
		return "ExecuteAdHoc"
	}
	return "Unknown"
}

// Command is a classified request. Only the fields relevant to Kind are set.
type Command struct {
	Kind Kind
	// Text is the query text to run for Explain and ExecuteAdHoc.
	Text string
	// QueryID is the saved query id for ExecuteByID.
	QueryID string
	// Params are passed through to the service for ExecuteByID and ExecuteAdHoc.
	Params map[string]interface{}
}

const (
	showDatabases = "show databases"
	showTables    = "show tables"
	explain       = "explain"
	selectWord    = "select"
	from          = "from"
	queryPrefix   = "query_"
)

// Classify maps text to a Command. params are attached to the commands that execute a query.
func Classify(text string, params map[string]interface{}) (Command, error) {
	trimmed := strings.TrimSpace(text)
	folded := strings.ToLower(trimmed)

	switch strings.Join(strings.Fields(folded), " ") {
	case showDatabases:
		return Command{Kind: ListDataSources}, nil
	case showTables:
		return Command{Kind: ListQueries}, nil
	}

	if hasKeyword(folded, explain) {
		return Command{Kind: Explain, Text: strings.TrimSpace(trimmed[len(explain):])}, nil
	}

	if !hasKeyword(folded, selectWord) {
		return Command{}, errors.ES(errors.OpClassify, errors.KSyntax, "unsupported query %q: only SHOW DATABASES, SHOW TABLES, EXPLAIN and SELECT are supported", trimmed)
	}

	if id, ok := savedQueryID(trimmed); ok {
		return Command{Kind: ExecuteByID, QueryID: id, Params: params}, nil
	}
	return Command{Kind: ExecuteAdHoc, Text: text, Params: params}, nil
}

// hasKeyword reports whether folded starts with the lower case keyword kw as a whole word.
func hasKeyword(folded, kw string) bool {
	if !strings.HasPrefix(folded, kw) {
		return false
	}
	return len(folded) == len(kw) || !isWordByte(folded[len(kw)])
}

func isWordByte(b byte) bool {
	return b == '_' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

type token struct {
	text string
	// space is true when whitespace separates this token from the previous one.
	space bool
	word  bool
}

// tokenize splits s into words (maximal runs of [A-Za-z0-9_]) and single punctuation bytes.
// Whitespace is not a token but is recorded on the token that follows it.
func tokenize(s string) []token {
	var (
		toks  []token
		space bool
	)
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			space = true
			i++
		case isWordByte(c):
			j := i
			for j < len(s) && isWordByte(s[j]) {
				j++
			}
			toks = append(toks, token{text: s[i:j], space: space, word: true})
			space = false
			i = j
		default:
			toks = append(toks, token{text: s[i : i+1], space: space})
			space = false
			i++
		}
	}
	return toks
}

// savedQueryID finds the first "FROM query_<digits>" in s and returns the digits.
func savedQueryID(s string) (string, bool) {
	toks := tokenize(s)
	for i := 0; i+1 < len(toks); i++ {
		if !toks[i].word || !strings.EqualFold(toks[i].text, from) {
			continue
		}
		next := toks[i+1]
		if !next.word || !next.space {
			continue
		}
		if id, ok := queryNumber(next.text); ok {
			return id, true
		}
	}
	return "", false
}

func queryNumber(word string) (string, bool) {
	if len(word) <= len(queryPrefix) || !strings.EqualFold(word[:len(queryPrefix)], queryPrefix) {
		return "", false
	}
	digits := word[len(queryPrefix):]
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return "", false
		}
	}
	return digits, true
}
