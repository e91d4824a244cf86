package main

import (
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"finitefield.org/wheel-of-life/internal/chart"
	"finitefield.org/wheel-of-life/internal/content"
	mw "finitefield.org/wheel-of-life/internal/middleware"
	"finitefield.org/wheel-of-life/internal/nav"
	"finitefield.org/wheel-of-life/internal/platform/observability"
	"finitefield.org/wheel-of-life/internal/seo"
	"finitefield.org/wheel-of-life/internal/wheel"
)

// reviewLabelLines spells out the labels that would crowd the review chart.
var reviewLabelLines = map[string][]string{
	"personal_growth": {"Personal", "Growth"},
	"relationships":   {"R/ships"},
}

type pageView struct {
	Lang            string
	Meta            seo.Meta
	JSONLD          template.JS
	Nav             []nav.RenderedItem
	CSRFToken       string
	GAMeasurementID string

	Wizard *wizardView
	Review *reviewView
	Page   *content.Page
}

type wizardView struct {
	Step        int
	Number      int
	Total       int
	Progress    int
	Category    wheel.Category
	Score       int
	Rated       bool
	Note        string
	HelperNote  string
	CanBack     bool
	CanContinue bool
	Guidance    template.HTML
	ChartSVG    template.HTML
}

type reviewEntry struct {
	Label string
	Color string
	Score int
	Rated bool
	Note  string
}

type promptView struct {
	ID       string
	Question string
	Answer   string
}

type reviewView struct {
	ChartSVG template.HTML
	Entries  []reviewEntry
	Prompts  []promptView
	Guidance template.HTML
}

func (a *app) basePage(r *http.Request, title string) pageView {
	lang := mw.Lang(r)
	site := i18nBundle.T(lang, "site.title")
	if title == "" {
		title = site
	} else {
		title = title + " | " + site
	}
	desc := i18nBundle.T(lang, "site.description")
	canonical := a.cfg.Site.URL + r.URL.Path
	return pageView{
		Lang: lang,
		Meta: seo.Meta{
			Title:       title,
			Description: desc,
			Canonical:   canonical,
			OG:          seo.OpenGraph{Title: title, Description: desc, Type: "website", URL: canonical},
		},
		JSONLD:          template.JS(seo.JSON(seo.WebApplication(site, a.cfg.Site.URL+"/", desc))),
		Nav:             nav.Build(r.URL.Path),
		CSRFToken:       mw.CSRFToken(r),
		GAMeasurementID: a.cfg.Site.GAMeasurementID,
	}
}

// wheelPage fills the wizard or the review body for s.
func (a *app) wheelPage(r *http.Request, s wheel.State) pageView {
	v := a.basePage(r, "")
	if s.IsComplete(a.catalog) {
		v.Review = a.reviewView(r, v.Lang, s)
	} else {
		v.Wizard = a.wizardView(r, v.Lang, s)
	}
	return v
}

func (a *app) wizardView(r *http.Request, lang string, s wheel.State) *wizardView {
	cat, _ := s.ActiveCategory(a.catalog)
	score, rated := s.Scores.Get(cat.ID)
	return &wizardView{
		Step:        s.Step,
		Number:      s.Step + 1,
		Total:       a.catalog.Len(),
		Progress:    s.Progress(a.catalog),
		Category:    cat,
		Score:       score,
		Rated:       rated,
		Note:        s.Reflections.Get(cat.ID),
		HelperNote:  a.catalog.HelperNote,
		CanBack:     s.Step > 0,
		CanContinue: s.CanContinue(a.catalog),
		Guidance:    a.guidance(r, "rating", lang),
		ChartSVG:    svg(chart.Compute(a.catalog.Categories, s.Scores, chart.DefaultSize)),
	}
}

func (a *app) reviewView(r *http.Request, lang string, s wheel.State) *reviewView {
	v := &reviewView{
		ChartSVG: svg(chart.Compute(a.catalog.Categories, s.Scores, chart.DefaultSize, chart.WithLabelLines(reviewLabelLines))),
		Entries:  make([]reviewEntry, 0, a.catalog.Len()),
		Prompts:  make([]promptView, 0, len(a.catalog.Prompts)),
		Guidance: a.guidance(r, "review", lang),
	}
	for _, cat := range a.catalog.Categories {
		score, rated := s.Scores.Get(cat.ID)
		v.Entries = append(v.Entries, reviewEntry{
			Label: cat.Label,
			Color: cat.Color,
			Score: score,
			Rated: rated,
			Note:  s.Reflections.Get(cat.ID),
		})
	}
	for _, p := range a.catalog.Prompts {
		v.Prompts = append(v.Prompts, promptView{ID: p.ID, Question: p.Question, Answer: s.Reflections.Get(p.ID)})
	}
	return v
}

// guidance returns the rendered guidance copy, or nothing when it is missing.
func (a *app) guidance(r *http.Request, slug, lang string) template.HTML {
	page, err := a.content.Get(content.KindGuidance, slug, lang)
	if err != nil {
		observability.FromContext(r.Context()).Warn("guidance unavailable", zap.String("slug", slug), zap.Error(err))
		return ""
	}
	return page.HTML
}

// svg embeds a chart. The serialiser escapes every text node.
func svg(l chart.Layout) template.HTML {
	return template.HTML(l.SVG())
}
