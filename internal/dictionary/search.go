package dictionary

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Search 在三种语言中做大小写不敏感的子串搜索，按词典顺序返回，limit<=0 表示不限制
func (d *Dictionary) Search(query string, limit int) []Entry {
	term := fold(strings.TrimSpace(query))
	if term == "" {
		return nil
	}

	var matches []Entry
	for _, e := range d.entries {
		if strings.Contains(fold(e.Simplified), term) ||
			strings.Contains(fold(e.Traditional), term) ||
			strings.Contains(fold(e.English), term) {
			matches = append(matches, e)
			if limit > 0 && len(matches) >= limit {
				break
			}
		}
	}
	return matches
}

// SearchFuzzy 模糊搜索：查询的字符按顺序出现在词条中即命中，按编辑距离排序
func (d *Dictionary) SearchFuzzy(query string, limit int) []Entry {
	term := strings.TrimSpace(query)
	if term == "" {
		return nil
	}

	best := make(map[int]int)
	for _, field := range []func(Entry) string{
		func(e Entry) string { return e.English },
		func(e Entry) string { return e.Simplified },
		func(e Entry) string { return e.Traditional },
	} {
		targets := make([]string, len(d.entries))
		for i, e := range d.entries {
			targets[i] = field(e)
		}
		for _, rank := range fuzzy.RankFindNormalizedFold(term, targets) {
			if cur, ok := best[rank.OriginalIndex]; !ok || rank.Distance < cur {
				best[rank.OriginalIndex] = rank.Distance
			}
		}
	}

	indexes := make([]int, 0, len(best))
	for i := range best {
		indexes = append(indexes, i)
	}
	sort.Slice(indexes, func(a, b int) bool {
		da, db := best[indexes[a]], best[indexes[b]]
		if da != db {
			return da < db
		}
		return indexes[a] < indexes[b]
	})
	if limit > 0 && len(indexes) > limit {
		indexes = indexes[:limit]
	}

	out := make([]Entry, len(indexes))
	for i, idx := range indexes {
		out[i] = d.entries[idx]
	}
	return out
}
