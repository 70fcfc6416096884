package openai

import (
    "fmt"
    "regexp"
    "strings"
)

var (
    emailRe    = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+`)
    phoneRe    = regexp.MustCompile(`\b\+?\d[\d\-\s]{7,}\b`)
    urlRe      = regexp.MustCompile(`https?://[^\s]+`)
    tokenRe    = regexp.MustCompile(`(?i)\b(?:token|secret|password|apikey|api_key|bearer)[:=\s]+[A-Za-z0-9\-\._~+/]{8,}\b`)
    jiraUserRe = regexp.MustCompile(`\bJIRAUSER\d+\b`)
)

// scrub masks obvious PII and secrets in free text sent to the model.
func scrub(s string) string {
    s = strings.ReplaceAll(s, "\r\n", "\n")
    s = emailRe.ReplaceAllString(s, "<email>")
    s = urlRe.ReplaceAllString(s, "<url>")
    s = tokenRe.ReplaceAllString(s, "<secret>")
    s = phoneRe.ReplaceAllString(s, "<phone>")
    s = jiraUserRe.ReplaceAllString(s, "<user>")
    return s
}

// aliases swaps people's names for stable placeholders (user01, user02, ...)
// and maps model answers back to the real names.
type aliases struct {
    toAlias map[string]string
    toName  map[string]string
    order   []string
    res     []*regexp.Regexp
}

func newAliases(names []string) *aliases {
    a := &aliases{toAlias: map[string]string{}, toName: map[string]string{}}
    for _, n := range names {
        n = strings.TrimSpace(n)
        if n == "" { continue }
        if _, ok := a.toAlias[n]; ok { continue }
        alias := fmt.Sprintf("user%02d", len(a.order)+1)
        a.toAlias[n] = alias
        a.toName[alias] = n
        a.order = append(a.order, n)
        a.res = append(a.res, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(n)+`\b`))
    }
    return a
}

func (a *aliases) name(n string) string {
    if v, ok := a.toAlias[strings.TrimSpace(n)]; ok { return v }
    return n
}

// text scrubs s and replaces any known name mentioned in it.
func (a *aliases) text(s string) string {
    s = scrub(s)
    for i, re := range a.res { s = re.ReplaceAllString(s, a.toAlias[a.order[i]]) }
    return s
}

func (a *aliases) restore(alias string) (string, bool) {
    n, ok := a.toName[strings.ToLower(strings.TrimSpace(alias))]
    return n, ok
}
