package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/v0xg/shadow/internal/crawler"
	"github.com/v0xg/shadow/internal/history"
)

const topElements = 5

func printState(w io.Writer, state *crawler.PageState) {
	title := state.Title
	if title == "" {
		title = "No Title Found"
	}
	pageType := string(state.PageType)
	if pageType == "" {
		pageType = "unknown"
	}
	goal := state.MainGoal
	if goal == "" {
		goal = "unknown"
	}

	fmt.Fprintf(w, "\n### [Page Context: %s]\n", title)
	if state.Description != "" {
		fmt.Fprintf(w, "> %s\n\n", state.Description)
	}
	fmt.Fprintf(w, "- **URL**: %s\n", state.URL)
	fmt.Fprintf(w, "- **Type**: %s\n", pageType)
	fmt.Fprintf(w, "- **Goal**: %s\n", goal)

	if len(state.Entities) > 0 {
		fmt.Fprintln(w, "\n- **Identified Entities**:")
		for _, e := range state.Entities {
			fmt.Fprintf(w, "  - %s: %s\n", e.Type, e.Value)
		}
	}

	if len(state.Elements) == 0 {
		fmt.Fprintln(w, "\n[INFO] No semantic elements identified on this page.")
		return
	}
	fmt.Fprintf(w, "\n- **Semantic Actions (Top %d of %d)**:\n", min(topElements, len(state.Elements)), len(state.Elements))
	for _, el := range state.Elements[:min(topElements, len(state.Elements))] {
		intent := strings.ToUpper(string(el.Intent))
		if intent == "" {
			intent = "VIEW"
		}
		fmt.Fprintf(w, "  - [%s] %s (ID: %s)\n", intent, el.Text, el.ID)
	}
}

func printHistory(w io.Writer, entries []history.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "[INFO] No pages visited yet.")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s  %-13s  %s  %s\n",
			e.VisitedAt.Local().Format("2006-01-02 15:04:05"), e.PageType, e.URL, e.Title)
	}
}
