// Package sanitize очищает ответы внешних сервисов от HTML перед сохранением.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"ai-diary/internal/domain"
)

// Plain удаляет все теги и оставляет обычный текст.
type Plain struct {
	policy *bluemonday.Policy
}

var _ domain.Sanitizer = (*Plain)(nil)

// NewPlain создаёт очиститель на строгой политике bluemonday.
func NewPlain() *Plain {
	return &Plain{policy: bluemonday.StrictPolicy()}
}

// Text возвращает текст без тегов. Сущности вроде &amp; раскрываются, потому что
// результат хранится и отдаётся как обычный текст, а не HTML.
func (p *Plain) Text(s string) string {
	if s == "" {
		return ""
	}
	cleaned := p.policy.Sanitize(s)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}

// Strings очищает каждый элемент и отбрасывает пустые.
func (p *Plain) Strings(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if cleaned := p.Text(v); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out
}
