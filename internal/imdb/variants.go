package imdb

import (
	"fmt"
	"regexp"
)

// variantSizes are the hi-res target edges probed in descending order.
var variantSizes = []int{6000, 5000, 4000, 3500, 3000, 2500, 2200, 2000}

// imdbImageRe splits an IMDb/Amazon image URL into the parts around the _V1_
// rendering token so larger variants can be substituted.
var imdbImageRe = regexp.MustCompile(`(?i)^(.+?)(_V1_[^.]*)?\.(jpe?g|png|webp)(\?.*)?$`)

// HiResVariants enumerates high-resolution variant URLs for an IMDb poster
// image, tallest first (UY scales by height, UX by width), ending with the
// bare original. URLs that don't look like IMDb media pass through unchanged.
func HiResVariants(imageURL string) []string {
	m := imdbImageRe.FindStringSubmatch(imageURL)
	if m == nil {
		return []string{imageURL}
	}

	prefix, token, ext, qs := m[1], m[2], m[3], m[4]
	if token == "" {
		// No rendering token yet; anchor one after the basename.
		prefix += "."
	}

	variants := make([]string, 0, 2*len(variantSizes)+1)
	for _, h := range variantSizes {
		variants = append(variants, fmt.Sprintf("%s_V1_FMjpg_UY%d_.%s%s", prefix, h, ext, qs))
	}
	for _, w := range variantSizes {
		variants = append(variants, fmt.Sprintf("%s_V1_FMjpg_UX%d_.%s%s", prefix, w, ext, qs))
	}
	variants = append(variants, fmt.Sprintf("%s_V1_.%s%s", prefix, ext, qs))
	return variants
}
