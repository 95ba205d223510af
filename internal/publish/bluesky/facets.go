package bluesky

import (
	"context"
	"regexp"
	"strings"

	"github.com/bluesky-social/indigo/api/bsky"

	"github.com/crosspub/crosspub/internal/logutil"
)

var (
	reFacetLink    = regexp.MustCompile(`https?://[^\s]+`)
	reFacetMention = regexp.MustCompile(`(^|\s)(@[a-zA-Z0-9][a-zA-Z0-9.-]*\.[a-zA-Z]{2,})`)
)

// handleResolver turns an AT handle into a DID. Split out so facet tests run
// without a network.
type handleResolver func(ctx context.Context, handle string) (string, error)

// detectFacets computes link and mention facets for one post's text. Indexes
// are byte offsets over the UTF-8 encoding, as the protocol requires, which
// regexp match positions already are. Mentions whose handle fails to resolve
// are posted as plain text rather than failing the post.
func detectFacets(ctx context.Context, text string, resolve handleResolver) []*bsky.RichtextFacet {
	var facets []*bsky.RichtextFacet

	for _, loc := range reFacetLink.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		uri := strings.TrimRight(text[start:end], ".,;:!?)")
		end = start + len(uri)
		facets = append(facets, &bsky.RichtextFacet{
			Index: &bsky.RichtextFacet_ByteSlice{ByteStart: int64(start), ByteEnd: int64(end)},
			Features: []*bsky.RichtextFacet_Features_Elem{
				{RichtextFacet_Link: &bsky.RichtextFacet_Link{Uri: uri}},
			},
		})
	}

	for _, loc := range reFacetMention.FindAllStringSubmatchIndex(text, -1) {
		// group 2 is the @handle; group 1 absorbs the leading boundary.
		start, end := loc[4], loc[5]
		handle := text[start+1 : end]
		if resolve == nil {
			continue
		}
		did, err := resolve(ctx, handle)
		if err != nil {
			logutil.Debugf("mention %q did not resolve: %v", handle, err)
			continue
		}
		facets = append(facets, &bsky.RichtextFacet{
			Index: &bsky.RichtextFacet_ByteSlice{ByteStart: int64(start), ByteEnd: int64(end)},
			Features: []*bsky.RichtextFacet_Features_Elem{
				{RichtextFacet_Mention: &bsky.RichtextFacet_Mention{Did: did}},
			},
		})
	}

	return facets
}
