package acquisition

// Candidate is an entry of the fixed satellite roster
type Candidate struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	PRN         int    `json:"prn"` // Galileo E-number, used for GSV output
}

// Roster is the list of candidate satellites, revealed in order
var Roster = []Candidate{
	{ID: "GSAT0101", DisplayName: "Galileo-1", PRN: 11},
	{ID: "GSAT0102", DisplayName: "Galileo-2", PRN: 12},
	{ID: "GSAT0103", DisplayName: "Galileo-3", PRN: 19},
	{ID: "GSAT0104", DisplayName: "Galileo-4", PRN: 20},
	{ID: "GSAT0201", DisplayName: "Galileo-5", PRN: 18},
	{ID: "GSAT0202", DisplayName: "Galileo-6", PRN: 14},
	{ID: "GSAT0203", DisplayName: "Galileo-7", PRN: 26},
	{ID: "GSAT0204", DisplayName: "Galileo-8", PRN: 22},
}

// RosterByID returns the roster candidate with the given id, or nil if
// there is none.
func RosterByID(id string) *Candidate {
	for i := range Roster {
		if Roster[i].ID == id {
			return &Roster[i]
		}
	}
	return nil
}
