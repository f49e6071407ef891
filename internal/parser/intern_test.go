package parser

import (
	"fmt"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestStringPool(t *testing.T) {
	p := newStringPool()

	a := p.intern(string([]byte("Revenue")))
	b := p.intern(string([]byte("Revenue")))
	assert.Equal(t, "Revenue", b)
	assert.Equal(t, unsafe.StringData(a), unsafe.StringData(b))
	assert.Equal(t, 1, p.size())

	assert.Equal(t, "", p.intern(""))
	assert.Equal(t, 1, p.size())
}

func TestStringPool_Limit(t *testing.T) {
	p := newStringPool()
	for i := 0; i < maxPoolSize+10; i++ {
		p.intern(fmt.Sprintf("label-%d", i))
	}
	assert.Equal(t, maxPoolSize, p.size())
	assert.Equal(t, "overflow", p.intern("overflow"))
	assert.Equal(t, maxPoolSize, p.size())
}
