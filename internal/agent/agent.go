package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/matsen/works/internal/work"
)

// topN is how many records an answer lists.
const topN = 5

// Agent answers questions by interpreting them and calling the works API.
type Agent struct {
	interpreter Interpreter
	api         API
	log         *zap.Logger
}

// New creates an Agent.
func New(interpreter Interpreter, api API, log *zap.Logger) *Agent {
	if log == nil {
		log = zap.NewNop()
	}
	return &Agent{interpreter: interpreter, api: api, log: log.Named("agent")}
}

// Answer interprets question and returns a text answer. Errors are
// returned only when the works API cannot be reached or misbehaves;
// missing records, rejected updates and unclear questions are answers.
func (a *Agent) Answer(ctx context.Context, question string) (string, error) {
	plan := a.interpreter.Interpret(ctx, question)
	a.log.Debug("Plan", zap.String("action", string(plan.Action)),
		zap.String("keyword", plan.Keyword), zap.String("id", plan.ID))

	switch plan.Action {
	case ActionClarify:
		if plan.Message == "" {
			return msgNotUnderstood, nil
		}
		return plan.Message, nil
	case ActionListAll:
		return a.listAll(ctx)
	case ActionGetByID:
		return a.getByID(ctx, plan.ID)
	case ActionSearch:
		return a.search(ctx, plan)
	case ActionUpdate:
		return a.update(ctx)
	default:
		return "Sorry, I could not interpret your request. Try rephrasing the question.", nil
	}
}

func (a *Agent) listAll(ctx context.Context) (string, error) {
	listing, err := a.api.ListAll(ctx)
	if err != nil {
		return "", err
	}

	top := head(listing.Results)
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d works in total. The first %d are:\n", listing.Total, len(top))
	for i, w := range top {
		fmt.Fprintf(&b, "%d. %q (%s) - DOI: %s\n", i+1, titleOf(w), yearOf(w), doiOf(w))
	}
	if listing.Total > len(top) {
		b.WriteString("...\n(Only the first 5 results are shown.)")
	}
	return b.String(), nil
}

func (a *Agent) getByID(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "Please give the ID of the work you want to look up.", nil
	}

	w, err := a.api.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return "No work was found with that ID.", nil
	}
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s**", titleOf(*w))
	if w.PublicationYear != nil {
		fmt.Fprintf(&b, " (%d)", *w.PublicationYear)
	}
	if w.Language != nil && *w.Language != "" {
		fmt.Fprintf(&b, ", language: %s", *w.Language)
	}
	if w.DOI != nil && *w.DOI != "" {
		fmt.Fprintf(&b, ". DOI: %s.", *w.DOI)
	} else {
		b.WriteString(".")
	}
	if n := len(w.ReferencedWorks); n > 0 {
		fmt.Fprintf(&b, " It references %d other works.", n)
	}
	return b.String(), nil
}

func (a *Agent) search(ctx context.Context, plan Plan) (string, error) {
	f := work.Filter{Keyword: plan.Keyword, Year: plan.Year, Language: plan.Language}
	if f.IsEmpty() {
		return "What would you like to search for? Please give a keyword, year or language.", nil
	}

	listing, err := a.api.Search(ctx, f)
	if err != nil {
		return "", err
	}
	if listing.Total == 0 {
		return "No works matched the search.", nil
	}

	var b strings.Builder
	if f.Keyword != "" {
		fmt.Fprintf(&b, "Results for **%q**", f.Keyword)
		if f.Year != nil {
			fmt.Fprintf(&b, " in **%d**", *f.Year)
		}
		if f.Language != "" {
			fmt.Fprintf(&b, " in language **%s**", f.Language)
		}
		b.WriteString(":\n")
	} else {
		b.WriteString("Search results:\n")
	}

	top := head(listing.Results)
	for i, w := range top {
		fmt.Fprintf(&b, "%d. **%s** (%s). DOI: %s\n", i+1, titleOf(w), yearOf(w), doiOf(w))
	}
	if listing.Total > len(top) {
		fmt.Fprintf(&b, "... (Showing %d of %d results)\n", len(top), listing.Total)
	}
	return b.String(), nil
}

func (a *Agent) update(ctx context.Context) (string, error) {
	res, err := a.api.Update(ctx)
	if errors.Is(err, ErrUnauthorized) {
		return "Update failed: unauthorized (invalid token).", nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return "Update failed: " + apiErr.Detail, nil
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Update completed: %d works loaded.", res.Affected), nil
}

func head(works []work.Work) []work.Work {
	if len(works) > topN {
		return works[:topN]
	}
	return works
}

func titleOf(w work.Work) string {
	if w.Title == "" {
		return "(untitled)"
	}
	return w.Title
}

func yearOf(w work.Work) string {
	if w.PublicationYear == nil {
		return "?"
	}
	return fmt.Sprint(*w.PublicationYear)
}

func doiOf(w work.Work) string {
	if w.DOI == nil || *w.DOI == "" {
		return "N/A"
	}
	return *w.DOI
}
