// backend/scraper/extract.go
package scraper

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Dataset identifiers are UUID-shaped. Four independent pattern classes
// recognize them so a single markup change on the portal degrades
// extraction instead of breaking it:
//  1. canonical view URLs
//  2. element data-attributes
//  3. arbitrary href attributes
//  4. bare identifier-shaped tokens anywhere in the text
var (
	identifierRe = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
	viewURLRe    = regexp.MustCompile(`/datasets?/(?:view/)?([0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12})`)

	dataAttrSelectors = []string{"data-id", "data-uid", "data-dataset-id", "data-resource-id"}

	jsonListKeys  = []string{"data", "results", "items", "content"}
	jsonIDKeys    = []string{"id", "uuid", "identifier", "dataset_id", "datasetId", "package_id"}
	jsonTitleKeys = []string{"title", "name", "display_name", "label"}
)

// ValidIdentifier rejects tokens that merely look identifier-shaped:
// the all-zero UUID and other single-character placeholders.
func ValidIdentifier(id string) bool {
	if !identifierRe.MatchString(id) || len(id) != 36 {
		return false
	}
	stripped := strings.ReplaceAll(id, "-", "")
	first := stripped[0]
	for i := 1; i < len(stripped); i++ {
		if stripped[i] != first {
			return true
		}
	}
	return false
}

// ExtractIdentifiersFromHTML pulls candidate identifiers from rendered
// markup using all four pattern classes. Returns a de-duplicated
// identifier -> best-effort title map (titles empty when the markup does
// not pair one with the identifier). Ordering is irrelevant; callers
// union results into a running set.
func ExtractIdentifiersFromHTML(html string) map[string]string {
	found := make(map[string]string)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err == nil {
		// Class 1+3: view URLs and any other identifier-bearing hrefs.
		doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
			href, _ := s.Attr("href")
			title := strings.TrimSpace(s.Text())
			if m := viewURLRe.FindStringSubmatch(href); m != nil {
				addIdentifier(found, strings.ToLower(m[1]), title)
				return
			}
			if m := identifierRe.FindString(href); m != "" {
				addIdentifier(found, strings.ToLower(m), title)
			}
		})

		// Class 2: data-attributes on any element.
		for _, attr := range dataAttrSelectors {
			doc.Find("[" + attr + "]").Each(func(_ int, s *goquery.Selection) {
				v, _ := s.Attr(attr)
				if m := identifierRe.FindString(v); m != "" {
					addIdentifier(found, strings.ToLower(m), strings.TrimSpace(s.Text()))
				}
			})
		}
	}

	// Class 4: bare tokens anywhere, catch-all for markup goquery cannot
	// see (inline scripts, JSON blobs in attributes).
	for _, m := range identifierRe.FindAllString(html, -1) {
		addIdentifier(found, strings.ToLower(m), "")
	}

	return found
}

// ExtractIdentifiersFromText applies only the loose bare-token pattern.
func ExtractIdentifiersFromText(text string) map[string]string {
	found := make(map[string]string)
	for _, m := range identifierRe.FindAllString(text, -1) {
		addIdentifier(found, strings.ToLower(m), "")
	}
	return found
}

// ExtractIdentifiersFromJSON inspects an API payload for dataset entries.
// It walks the conventional list-wrapping keys and, per element, the
// conventional id- and title-bearing field names. Invalid payloads yield
// an empty map, never an error: JSON capture is a best-effort side channel.
func ExtractIdentifiersFromJSON(raw []byte) map[string]string {
	found := make(map[string]string)

	var payload interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return found
	}
	walkJSONValue(payload, found, 0)
	return found
}

// walkJSONValue recurses through wrapper objects and arrays. Depth is
// bounded because real payloads nest the list at most a few levels down
// (e.g. CKAN's {"result": {"results": [...]}}).
func walkJSONValue(v interface{}, found map[string]string, depth int) {
	if depth > 4 {
		return
	}
	switch val := v.(type) {
	case []interface{}:
		for _, elem := range val {
			if obj, ok := elem.(map[string]interface{}); ok {
				extractFromObject(obj, found)
			} else if s, ok := elem.(string); ok {
				// Bulk listing endpoints return flat identifier arrays.
				addIdentifier(found, strings.ToLower(s), "")
			}
		}
	case map[string]interface{}:
		for _, key := range append([]string{"result"}, jsonListKeys...) {
			if inner, ok := val[key]; ok {
				walkJSONValue(inner, found, depth+1)
			}
		}
	}
}

func extractFromObject(obj map[string]interface{}, found map[string]string) {
	var id, title string
	for _, key := range jsonIDKeys {
		if s, ok := obj[key].(string); ok && identifierRe.MatchString(s) {
			id = strings.ToLower(identifierRe.FindString(s))
			break
		}
	}
	if id == "" {
		return
	}
	for _, key := range jsonTitleKeys {
		if s, ok := obj[key].(string); ok && s != "" {
			title = s
			break
		}
	}
	addIdentifier(found, id, title)
}

// addIdentifier unions an id into the set, keeping the first non-empty
// title seen for it.
func addIdentifier(found map[string]string, id, title string) {
	if !ValidIdentifier(id) {
		return
	}
	if existing, ok := found[id]; ok && existing != "" {
		return
	}
	found[id] = title
}
