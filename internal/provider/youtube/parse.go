package youtube

import (
	"strings"

	"github.com/tidwall/gjson"
)

var initialDataMarkers = []string{
	"var ytInitialData = ",
	`window["ytInitialData"] = `,
	"ytInitialData = ",
}

// extractInitialData cuts the ytInitialData object out of the page.
func extractInitialData(page string) (gjson.Result, error) {
	for _, marker := range initialDataMarkers {
		i := strings.Index(page, marker)
		if i < 0 {
			continue
		}
		rest := page[i+len(marker):]
		end := strings.Index(rest, ";</script>")
		if end < 0 {
			end = len(rest)
		}
		raw := strings.TrimSpace(rest[:end])
		if !gjson.Valid(raw) {
			continue
		}
		return gjson.Parse(raw), nil
	}
	return gjson.Result{}, ErrNoInitialData
}

const sectionsPath = "contents.twoColumnSearchResultsRenderer.primaryContents.sectionListRenderer.contents"

// parseResults walks the section list. The corrected query is returned
// when the page says it searched for something else.
func parseResults(data gjson.Result) ([]Item, string) {
	var (
		items     []Item
		corrected string
	)

	data.Get(sectionsPath).ForEach(func(_, section gjson.Result) bool {
		section.Get("itemSectionRenderer.contents").ForEach(func(_, entry gjson.Result) bool {
			if r := entry.Get("showingResultsForRenderer"); r.Exists() {
				corrected = joinRuns(r.Get("correctedQuery.runs"))
				return true
			}
			items = append(items, parseItem(entry))
			return true
		})
		return true
	})

	return items, corrected
}

func parseItem(entry gjson.Result) Item {
	if v := entry.Get("videoRenderer"); v.Exists() {
		return Item{
			Kind:      KindVideo,
			ID:        v.Get("videoId").String(),
			Title:     joinRuns(v.Get("title.runs")),
			Duration:  v.Get("lengthText.simpleText").String(),
			Thumbnail: lastThumbnail(v.Get("thumbnail.thumbnails")),
			Author:    firstOf(v, "ownerText.runs.0.text", "longBylineText.runs.0.text"),
		}
	}
	if v := entry.Get("playlistRenderer"); v.Exists() {
		return Item{
			Kind:   KindPlaylist,
			ID:     v.Get("playlistId").String(),
			Title:  v.Get("title.simpleText").String(),
			Author: firstOf(v, "longBylineText.runs.0.text", "shortBylineText.runs.0.text"),
		}
	}
	if v := entry.Get("channelRenderer"); v.Exists() {
		return Item{
			Kind:  KindChannel,
			ID:    v.Get("channelId").String(),
			Title: v.Get("title.simpleText").String(),
		}
	}
	if v := entry.Get("shelfRenderer"); v.Exists() {
		return Item{Kind: KindShelf, Title: v.Get("title.simpleText").String()}
	}
	return Item{Kind: KindOther}
}

func joinRuns(runs gjson.Result) string {
	var b strings.Builder
	for _, r := range runs.Get("#.text").Array() {
		b.WriteString(r.String())
	}
	return b.String()
}

func lastThumbnail(thumbs gjson.Result) string {
	arr := thumbs.Array()
	if len(arr) == 0 {
		return ""
	}
	return arr[len(arr)-1].Get("url").String()
}

func firstOf(v gjson.Result, paths ...string) string {
	for _, p := range paths {
		if s := v.Get(p).String(); s != "" {
			return s
		}
	}
	return ""
}
