package scanner

import "sync"

// View is the stateful scanner table: the latest rows plus the user's
// symbol filter, sort and page.
type View struct {
	mu       sync.Mutex
	def      Definition
	rows     []Row
	filter   string
	sort     Sort
	page     int
	pageSize int
}

func NewView(def Definition) *View {
	return &View{
		def:      def,
		sort:     def.DefaultSort,
		pageSize: def.Defaults.PageSize(),
	}
}

func (v *View) Definition() Definition {
	return v.def
}

// SetRows replaces the data. Filter, sort and page are kept.
func (v *View) SetRows(rows []Row) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rows = rows
}

func (v *View) Rows() []Row {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.rows
}

func (v *View) SetFilter(q string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.filter = q
	v.page = 0
}

// ToggleSort sorts a new column descending and flips the direction of the
// current one.
func (v *View) ToggleSort(key string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.sort.Key == key {
		if v.sort.Direction == Desc {
			v.sort.Direction = Asc
		} else {
			v.sort.Direction = Desc
		}
	} else {
		v.sort = Sort{Key: key, Direction: Desc}
	}
	v.page = 0
}

func (v *View) SetSort(s Sort) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sort = s
	v.page = 0
}

func (v *View) Sort() Sort {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sort
}

func (v *View) SetPageSize(n int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pageSize = max(1, n)
	v.page = v.current().Index
}

func (v *View) SetPage(i int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.page = i
	v.page = v.current().Index
}

func (v *View) NextPage() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.page++
	v.page = v.current().Index
}

func (v *View) PrevPage() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.page--
	v.page = v.current().Index
}

// Page returns the visible rows after filtering, sorting and paging.
func (v *View) Page() Page {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current()
}

func (v *View) current() Page {
	rows := FilterBySymbol(v.rows, v.filter)
	rows = SortRows(v.def, rows, v.sort)
	return Paginate(rows, v.page, v.pageSize)
}
