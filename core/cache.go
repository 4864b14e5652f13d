package core

import (
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

const stmtCacheSize = 5000

// stmtCache holds statements compiled from query documents.
type stmtCache struct {
	cache *lru.TwoQueueCache[string, string]
}

func newStmtCache() (sc stmtCache, err error) {
	sc.cache, err = lru.New2Q[string, string](stmtCacheSize)
	return
}

// stmtKey identifies a document compiled against a feature type. The
// geometry metadata is part of the key since it changes the statement.
func stmtKey(doc []byte, ft *FeatureType) string {
	var sb strings.Builder

	if ft != nil {
		sb.WriteString(ft.Table())
		for _, a := range ft.GeometryAttributes() {
			sb.WriteByte(':')
			sb.WriteString(a.Name)
			sb.WriteByte('/')
			sb.WriteString(strconv.Itoa(a.SRID))
			sb.WriteByte('/')
			sb.WriteString(strconv.Itoa(a.Dimension))
		}
		for _, idx := range ft.Indexes {
			sb.WriteByte('#')
			sb.WriteString(idx.Name)
		}
	}
	sb.WriteByte(0)
	sb.Write(doc)
	return sb.String()
}

func (sc stmtCache) Get(key string) (val string, fromCache bool) {
	val, fromCache = sc.cache.Get(key)
	return
}

func (sc stmtCache) Set(key string, val string) {
	sc.cache.Add(key, val)
}

func (sc stmtCache) Purge() {
	sc.cache.Purge()
}
