package export

import "github.com/jobapply/jobapply/internal/datastore/entities"

// Stats counts applications per status.
type Stats struct {
	Total    int
	ByStatus map[entities.ApplicationStatus]int
}

// BuildStats summarizes apps. Statuses without applications are omitted.
func BuildStats(apps []entities.JobApplication) Stats {
	s := Stats{Total: len(apps), ByStatus: make(map[entities.ApplicationStatus]int)}
	for i := range apps {
		s.ByStatus[apps[i].Status]++
	}
	return s
}
