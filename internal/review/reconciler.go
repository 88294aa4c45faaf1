package review

import (
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/docsweep/docsweep/internal/annotate"
)

// Filter narrows which review rows are displayed. Dimensions compose with
// AND semantics; zero values mean "no restriction". Filtering is read-only
// and never mutates the underlying record.
type Filter struct {
	Label string
	Page  int
	Text  string
}

func (f Filter) matches(row Row, skip string) bool {
	if skip != "label" && f.Label != "" && row.Label != f.Label {
		return false
	}
	if skip != "page" && f.Page != 0 && row.Page != f.Page {
		return false
	}
	if skip != "text" && f.Text != "" &&
		!strings.Contains(strings.ToLower(row.Text), strings.ToLower(f.Text)) {
		return false
	}
	return true
}

// snapshot is the one-level undo buffer: a deep copy of the reconciled views
// plus the page cursor they belong to, taken just before an exclusion. The
// cursor must travel with the views: restoring page-N boxes under a different
// current page would flush them into the wrong set entry later.
type snapshot struct {
	set    *annotate.PageSet
	record *Record
	page   int
}

// Reconciler owns the mutable review state for one document session. All
// mutation is sequential; there is no internal locking.
type Reconciler struct {
	set     *annotate.PageSet
	record  *Record
	current int
	view    []annotate.Annotation

	backup *snapshot
	filter Filter

	imageName func(page int) string
	log       *logrus.Entry
}

// NewReconciler starts a review session over an annotation set. imageName
// may be nil when no rendered pages exist.
func NewReconciler(set *annotate.PageSet, imageName func(page int) string) *Reconciler {
	r := &Reconciler{
		set:       set,
		imageName: imageName,
		current:   1,
		log:       logrus.WithField("component", "review"),
	}
	r.record = FromPageSet(set, imageName)
	r.loadView()
	return r
}

// NewReconcilerFromRecord starts a session from a loaded review file.
func NewReconcilerFromRecord(rec *Record, numPages int, imageName func(page int) string) *Reconciler {
	return NewReconciler(rec.ToPageSet(numPages), imageName)
}

// CurrentPage returns the 1-indexed page the view shows.
func (r *Reconciler) CurrentPage() int { return r.current }

// View returns the current page's editable box list.
func (r *Reconciler) View() []annotate.Annotation {
	out := make([]annotate.Annotation, len(r.view))
	copy(out, r.view)
	return out
}

// Record returns the review table in its current state.
func (r *Reconciler) Record() *Record { return r.record }

// Set returns the full-document annotation set.
func (r *Reconciler) Set() *annotate.PageSet { return r.set }

func (r *Reconciler) loadView() {
	stored := r.set.Page(r.current)
	r.view = make([]annotate.Annotation, len(stored))
	copy(r.view, stored)
}

// flush pushes in-progress view edits into the set and re-serializes the
// record, restoring the three-view invariant.
func (r *Reconciler) flush() {
	anns := make([]annotate.Annotation, len(r.view))
	copy(anns, r.view)
	r.set.SetPage(r.current, anns)
	r.record = FromPageSet(r.set, r.imageName)
}

// Navigate moves to a page, flushing current edits first. Out-of-range
// targets clamp to the nearest valid page rather than failing.
func (r *Reconciler) Navigate(page int) int {
	r.flush()
	if page < 1 {
		page = 1
	}
	if n := r.set.NumPages(); page > n && n > 0 {
		page = n
	}
	r.current = page
	r.loadView()
	return r.current
}

// Next and Prev step one page; both clamp at the document's edges.
func (r *Reconciler) Next() int { return r.Navigate(r.current + 1) }
func (r *Reconciler) Prev() int { return r.Navigate(r.current - 1) }

// EditBoxes replaces the current page's box list (move/resize/add/delete all
// arrive as a full replacement) and immediately re-serializes the record.
func (r *Reconciler) EditBoxes(boxes []annotate.Annotation) {
	for i := range boxes {
		boxes[i].Page = r.current
	}
	r.view = boxes
	r.flush()
}

// saveBackup snapshots the views and cursor, overwriting any previous
// backup: only the most recent exclusion is undoable.
func (r *Reconciler) saveBackup() {
	rows := make([]Row, len(r.record.Rows))
	copy(rows, r.record.Rows)
	r.backup = &snapshot{
		set:    r.set.Clone(),
		record: &Record{Rows: rows},
		page:   r.current,
	}
}

// Exclude removes the rows with the given IDs from the record, the set and
// the view. The pre-state is kept in the single undo slot.
func (r *Reconciler) Exclude(ids ...string) int {
	if len(ids) == 0 {
		return 0
	}
	r.flush()
	r.saveBackup()

	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	removed := 0
	kept := r.record.Rows[:0]
	for _, row := range r.record.Rows {
		if drop[row.ID] {
			r.set.Remove(row.Page, row.ID)
			removed++
			continue
		}
		kept = append(kept, row)
	}
	r.record.Rows = kept
	r.loadView()

	r.log.WithField("removed", removed).Debug("rows excluded")
	return removed
}

// ExcludeFiltered removes every row the current filter selects.
func (r *Reconciler) ExcludeFiltered() int {
	rows := r.Filtered()
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	return r.Exclude(ids...)
}

// Undo restores the three views and the page cursor from the backup slot.
// With nothing to restore it is a no-op, not an error.
func (r *Reconciler) Undo() bool {
	if r.backup == nil {
		return false
	}
	r.set = r.backup.set
	r.record = r.backup.record
	r.current = r.backup.page
	r.loadView()
	r.backup = nil
	return true
}

// SetFilter replaces the active filter. Read-only with respect to the
// record.
func (r *Reconciler) SetFilter(f Filter) { r.filter = f }

// Filtered returns the rows the active filter selects, in record order.
func (r *Reconciler) Filtered() []Row {
	var out []Row
	for _, row := range r.record.Rows {
		if r.filter.matches(row, "") {
			out = append(out, row)
		}
	}
	return out
}

// FilterOptions are the selectable values for each filter dimension, each
// computed from the rows surviving the other two dimensions.
type FilterOptions struct {
	Labels []string
	Pages  []int
	Texts  []string
}

// Options recomputes the dropdown contents for the active filter.
func (r *Reconciler) Options() FilterOptions {
	var opts FilterOptions
	labelSeen := map[string]bool{}
	pageSeen := map[int]bool{}
	textSeen := map[string]bool{}

	for _, row := range r.record.Rows {
		if r.filter.matches(row, "label") && !labelSeen[row.Label] {
			labelSeen[row.Label] = true
			opts.Labels = append(opts.Labels, row.Label)
		}
		if r.filter.matches(row, "page") && !pageSeen[row.Page] {
			pageSeen[row.Page] = true
			opts.Pages = append(opts.Pages, row.Page)
		}
		if r.filter.matches(row, "text") && row.Text != "" && !textSeen[row.Text] {
			textSeen[row.Text] = true
			opts.Texts = append(opts.Texts, row.Text)
		}
	}

	sort.Strings(opts.Labels)
	sort.Ints(opts.Pages)
	sort.Strings(opts.Texts)
	return opts
}

// SelectRow jumps the view to the row's page without mutating anything and
// returns the row for a subsequent exclusion.
func (r *Reconciler) SelectRow(id string) (Row, bool) {
	for _, row := range r.record.Rows {
		if row.ID == id {
			r.Navigate(row.Page)
			return row, true
		}
	}
	return Row{}, false
}
