package services

import (
	"errors"
	"net/url"
	"strings"
)

// SearchEngine is one entry of the dashboard's search box selector
type SearchEngine struct {
	Key  string
	Name string
	URL  string
	Logo string
}

const DefaultSearchEngine = "bing"

var ErrUnknownEngine = errors.New("unknown search engine")

// SearchEngines in selector order.
var SearchEngines = []SearchEngine{
	{Key: "bing", Name: "Bing", URL: "https://www.bing.com/search?q=", Logo: "https://www.bing.com/favicon.ico"},
	{Key: "baidu", Name: "Baidu", URL: "https://www.baidu.com/s?wd=", Logo: "https://www.baidu.com/favicon.ico"},
	{Key: "google", Name: "Google", URL: "https://www.google.com/search?q=", Logo: "https://www.google.com/favicon.ico"},
}

func LookupEngine(key string) (SearchEngine, bool) {
	if key == "" {
		key = DefaultSearchEngine
	}
	for _, e := range SearchEngines {
		if e.Key == key {
			return e, true
		}
	}
	return SearchEngine{}, false
}

// SearchURL builds the results URL for query on the engine named by key. An
// empty key selects the default engine; a blank query yields "".
func SearchURL(key, query string) (string, error) {
	engine, ok := LookupEngine(key)
	if !ok {
		return "", ErrUnknownEngine
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return "", nil
	}
	return engine.URL + url.QueryEscape(query), nil
}
