// Package frappetest provides an in-memory stand-in for a Frappe site. It
// evaluates the same filters, ordering and limits the REST API does, closely
// enough for the tracker's queries.
package frappetest

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/BalanceBalls/timesheet-tracker/internal/frappe"
)

const (
	OpCreate = "create"
	OpRead   = "read"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Backend holds documents per doctype in insertion order.
type Backend struct {
	mu    sync.Mutex
	docs  map[string][]frappe.Record
	seq   int
	calls map[string]int
	fail  map[string]error
}

func NewBackend() *Backend {
	return &Backend{
		docs:  make(map[string][]frappe.Record),
		calls: make(map[string]int),
		fail:  make(map[string]error),
	}
}

// Resource returns a handle satisfying the tracker's resource interface.
func (b *Backend) Resource(doctype string) *Resource {
	return &Resource{backend: b, doctype: doctype}
}

// Insert stores rec as-is, assigning a name when it has none, and returns the stored copy.
func (b *Backend) Insert(doctype string, rec frappe.Record) frappe.Record {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.insert(doctype, rec)
}

func (b *Backend) insert(doctype string, rec frappe.Record) frappe.Record {
	stored := rec.Clone()
	if stored.Name() == "" {
		b.seq++
		stored["name"] = fmt.Sprintf("%s-%05d", prefix(doctype), b.seq)
	}
	b.docs[doctype] = append(b.docs[doctype], stored)
	return stored.Clone()
}

// Records returns copies of every stored document of doctype.
func (b *Backend) Records(doctype string) []frappe.Record {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]frappe.Record, 0, len(b.docs[doctype]))
	for _, r := range b.docs[doctype] {
		out = append(out, r.Clone())
	}
	return out
}

func (b *Backend) Count(doctype string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.docs[doctype])
}

// Calls returns how many times op was invoked on doctype.
func (b *Backend) Calls(op, doctype string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.calls[op+":"+doctype]
}

// FailOn makes op on doctype fail with err. An empty name matches every document.
func (b *Backend) FailOn(op, doctype, name string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.fail[failKey(op, doctype, name)] = err
}

func failKey(op, doctype, name string) string {
	return op + ":" + doctype + ":" + name
}

func (b *Backend) record(op, doctype, name string) error {
	b.calls[op+":"+doctype]++

	if err, ok := b.fail[failKey(op, doctype, name)]; ok {
		return err
	}
	if err, ok := b.fail[failKey(op, doctype, "")]; ok {
		return err
	}
	return nil
}

func (b *Backend) index(doctype, name string) int {
	return slices.IndexFunc(b.docs[doctype], func(r frappe.Record) bool {
		return r.Name() == name
	})
}

func notFound(kind error, doctype, name string) error {
	return &frappe.Error{
		Kind:    kind,
		Doctype: doctype,
		Name:    name,
		Status:  http.StatusNotFound,
		Message: fmt.Sprintf("%s %s not found", doctype, name),
	}
}

func prefix(doctype string) string {
	var b strings.Builder
	for _, w := range strings.Fields(doctype) {
		b.WriteString(strings.ToUpper(w[:1]))
	}
	return b.String()
}

// Resource is CRUD access to one doctype of a Backend.
type Resource struct {
	backend *Backend
	doctype string
}

func (r *Resource) Read(_ context.Context, q frappe.Query) ([]frappe.Record, error) {
	b := r.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.record(OpRead, r.doctype, ""); err != nil {
		return nil, err
	}

	var matched []frappe.Record
	for _, rec := range b.docs[r.doctype] {
		if matches(rec, q.Filters) {
			matched = append(matched, rec)
		}
	}

	if q.OrderBy != "" {
		sortRecords(matched, q.OrderBy)
	}

	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	out := make([]frappe.Record, 0, len(matched))
	for _, rec := range matched {
		out = append(out, project(rec, q.Fields))
	}
	return out, nil
}

func (r *Resource) Create(_ context.Context, data frappe.Record) (frappe.Record, error) {
	b := r.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.record(OpCreate, r.doctype, ""); err != nil {
		return nil, err
	}

	rec := data.Clone()
	delete(rec, "name")
	return b.insert(r.doctype, rec), nil
}

func (r *Resource) Update(_ context.Context, name string, data frappe.Record) (frappe.Record, error) {
	b := r.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.record(OpUpdate, r.doctype, name); err != nil {
		return nil, err
	}

	i := b.index(r.doctype, name)
	if i < 0 {
		return nil, notFound(frappe.ErrUpdate, r.doctype, name)
	}

	rec := b.docs[r.doctype][i]
	for k, v := range data {
		if k == "name" {
			continue
		}
		rec[k] = v
	}
	return rec.Clone(), nil
}

func (r *Resource) Delete(_ context.Context, name string) error {
	b := r.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.record(OpDelete, r.doctype, name); err != nil {
		return err
	}

	i := b.index(r.doctype, name)
	if i < 0 {
		return notFound(frappe.ErrDelete, r.doctype, name)
	}
	b.docs[r.doctype] = slices.Delete(b.docs[r.doctype], i, i+1)
	return nil
}

func project(rec frappe.Record, fields []string) frappe.Record {
	out := frappe.Record{"name": rec["name"]}
	for _, f := range fields {
		out[f] = rec[f]
	}
	return out
}

func matches(rec frappe.Record, filters []frappe.Filter) bool {
	for _, f := range filters {
		if !match(rec, f) {
			return false
		}
	}
	return true
}

func match(rec frappe.Record, f frappe.Filter) bool {
	got := rec.String(f.Field)

	if f.Op == frappe.OpIs {
		switch f.Value {
		case frappe.IsSet:
			return got != ""
		case frappe.IsNotSet:
			return got == ""
		}
		return false
	}

	want := fmt.Sprint(f.Value)
	c := compare(got, want)

	switch f.Op {
	case frappe.OpEq:
		return c == 0
	case frappe.OpNe:
		return c != 0
	case frappe.OpGte:
		return got != "" && c >= 0
	case frappe.OpLte:
		return got != "" && c <= 0
	case frappe.OpLt:
		return got != "" && c < 0
	}
	return false
}

// compare orders numerically when both sides are numbers and lexically
// otherwise, which is correct for the zero padded date formats Frappe uses.
func compare(a, b string) int {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}

type orderKey struct {
	field string
	desc  bool
}

func parseOrderBy(orderBy string) []orderKey {
	var keys []orderKey
	for _, part := range strings.Split(orderBy, ",") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		k := orderKey{field: strings.Trim(fields[0], "`")}
		if len(fields) > 1 && strings.EqualFold(fields[1], "desc") {
			k.desc = true
		}
		keys = append(keys, k)
	}
	return keys
}

func sortRecords(recs []frappe.Record, orderBy string) {
	keys := parseOrderBy(orderBy)
	slices.SortStableFunc(recs, func(a, b frappe.Record) int {
		for _, k := range keys {
			c := compare(a.String(k.field), b.String(k.field))
			if k.desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}
