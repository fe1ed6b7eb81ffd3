package booking

import "errors"

// DefaultGroupPageSize is the number of doctor groups shown per page.
const DefaultGroupPageSize = 6

var ErrSlotNotInResults = errors.New("slot not present in current results")

// GroupSlotsByDoctor folds a flat slot search result into per-doctor groups.
// Group order follows the first appearance of each doctor in the input, and
// every input slot lands in exactly one group.
func GroupSlotsByDoctor(slots []AvailableSlot) []DoctorGroup {
	groups := make([]DoctorGroup, 0)
	index := make(map[int64]int)

	for _, as := range slots {
		i, ok := index[as.Doctor.ID]
		if !ok {
			i = len(groups)
			index[as.Doctor.ID] = i
			groups = append(groups, DoctorGroup{Doctor: as.Doctor})
		}
		groups[i].Slots = append(groups[i].Slots, as.Slot)
	}

	return groups
}

// GroupPage is one page of doctor groups plus the pagination totals the
// client renders.
type GroupPage struct {
	Groups      []DoctorGroup `json:"groups"`
	Page        int           `json:"page"`
	PageSize    int           `json:"pageSize"`
	TotalGroups int           `json:"totalGroups"`
	TotalPages  int           `json:"totalPages"`
}

// PageGroups slices grouped results into a 1-based page. Pagination counts
// doctor groups, not individual slots. Out-of-range pages return an empty
// group list with totals intact.
func PageGroups(groups []DoctorGroup, page, pageSize int) GroupPage {
	if pageSize <= 0 {
		pageSize = DefaultGroupPageSize
	}
	if page <= 0 {
		page = 1
	}

	total := len(groups)
	totalPages := (total + pageSize - 1) / pageSize

	start := (page - 1) * pageSize
	end := start + pageSize
	var window []DoctorGroup
	if start < total {
		if end > total {
			end = total
		}
		window = groups[start:end]
	} else {
		window = []DoctorGroup{}
	}

	return GroupPage{
		Groups:      window,
		Page:        page,
		PageSize:    pageSize,
		TotalGroups: total,
		TotalPages:  totalPages,
	}
}

// Selection is a slot and its owning doctor, always set as a pair.
type Selection struct {
	Slot   Slot   `json:"slot"`
	Doctor Doctor `json:"doctor"`
}

// SelectSlot resolves a slot id against the current grouped results and
// returns the slot together with the doctor that owns it. The doctor is
// looked up through the slot, never taken from any separately tracked value,
// so a stale doctor can never be paired with a slot from another group.
func SelectSlot(groups []DoctorGroup, slotID int64) (Selection, error) {
	for _, g := range groups {
		for _, s := range g.Slots {
			if s.ID == slotID {
				return Selection{Slot: s, Doctor: g.Doctor}, nil
			}
		}
	}
	return Selection{}, ErrSlotNotInResults
}
