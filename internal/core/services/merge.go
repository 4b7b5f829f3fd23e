package services

import (
	"github.com/ifhub-labs/ifimport/internal/core/domain"
	"github.com/ifhub-labs/ifimport/internal/urlkit"
)

// descSeparator joins the descriptions contributed by different
// sources. Descriptions are deliberately not deduplicated: different
// sources write complementary text.
const descSeparator = "\n\n---\n\n"

// urlIdentity is the dedup key of a URLRef: the hashized URL plus the
// link category, so the same address may legitimately appear both as a
// game page and as, say, a screenshot.
type urlIdentity struct {
	hash string
	cat  string
}

// mergeState carries the running identity sets of one merge. The sets
// persist across all folded records, so deduplication is global to the
// whole import, not per partial record.
type mergeState struct {
	urls    map[urlIdentity]struct{}
	tags    map[domain.TagRef]struct{}
	authors map[domain.AuthorKey]struct{}
}

func newMergeState() *mergeState {
	return &mergeState{
		urls:    make(map[urlIdentity]struct{}),
		tags:    make(map[domain.TagRef]struct{}),
		authors: make(map[domain.AuthorKey]struct{}),
	}
}

// fold merges one partial record into dst. Scalar fields are
// first-writer-wins (callers fold in priority order), descriptions
// concatenate, and the collections append entries whose identity has
// not been seen before in this merge.
func (st *mergeState) fold(dst *domain.MergedRecord, src domain.PartialRecord) {
	if dst.Title == "" {
		dst.Title = src.Title
	}
	if dst.ReleaseDate == nil && src.ReleaseDate != nil {
		d := *src.ReleaseDate
		dst.ReleaseDate = &d
	}
	if dst.Err == "" {
		dst.Err = src.Err
	}

	if src.Desc != "" {
		if dst.Desc != "" {
			dst.Desc += descSeparator
		}
		dst.Desc += src.Desc
	}

	for _, u := range src.URLs {
		key := urlIdentity{hash: urlkit.HashizeURL(u.URL), cat: u.CatSlug}
		if _, seen := st.urls[key]; seen {
			continue
		}
		st.urls[key] = struct{}{}
		dst.URLs = append(dst.URLs, u)
	}

	for _, t := range src.Tags {
		if _, seen := st.tags[t]; seen {
			continue
		}
		st.tags[t] = struct{}{}
		dst.Tags = append(dst.Tags, t)
	}

	for _, a := range src.Authors {
		key := a.Key()
		if _, seen := st.authors[key]; seen {
			continue
		}
		st.authors[key] = struct{}{}
		dst.Authors = append(dst.Authors, a)
	}
}
