// Package nav builds the site navigation view model.
package nav

import "strings"

// Item is a top-level navigation entry.
type Item struct {
	Path     string
	LabelKey string
}

// RenderedItem is an Item with its active state for the current page.
type RenderedItem struct {
	Href     string
	LabelKey string
	Active   bool
}

// Main is the primary navigation.
var Main = []Item{
	{Path: "/", LabelKey: "nav.wheel"},
	{Path: "/about", LabelKey: "nav.about"},
}

// Build marks the item matching currentPath as active.
func Build(currentPath string) []RenderedItem {
	if currentPath == "" {
		currentPath = "/"
	}
	items := make([]RenderedItem, 0, len(Main))
	for _, it := range Main {
		items = append(items, RenderedItem{Href: it.Path, LabelKey: it.LabelKey, Active: isActive(it.Path, currentPath)})
	}
	return items
}

func isActive(itemPath, currentPath string) bool {
	if itemPath == "/" {
		return currentPath == "/"
	}
	return currentPath == itemPath || strings.HasPrefix(currentPath, itemPath+"/")
}
