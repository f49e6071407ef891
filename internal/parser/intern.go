package parser

// maxPoolSize bounds the pool for workbooks with many distinct labels.
const maxPoolSize = 50000

// stringPool hands out one shared copy of repeated strings, such as the
// header context shared by every cell of a row.
type stringPool struct {
	pool map[string]string
}

func newStringPool() *stringPool {
	return &stringPool{pool: make(map[string]string, 256)}
}

// intern returns the pooled copy of s. Past maxPoolSize new strings are
// returned as-is.
func (p *stringPool) intern(s string) string {
	if s == "" {
		return s
	}
	if pooled, ok := p.pool[s]; ok {
		return pooled
	}
	if len(p.pool) >= maxPoolSize {
		return s
	}
	p.pool[s] = s
	return s
}

// size returns the number of pooled strings.
func (p *stringPool) size() int {
	return len(p.pool)
}
