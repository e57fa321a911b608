package activity

// DefaultLimit is used when a listing asks for no explicit limit.
const DefaultLimit = 50

// ListActivityOptions provides filtering options for listing activity.
type ListActivityOptions struct {
	WeekID       int
	ActivityType *ActivityType
	Limit        int
}

// Matches reports whether the entry passes the filters.
func (o ListActivityOptions) Matches(entry ActivityEntry) bool {
	if o.WeekID != 0 && entry.WeekID != o.WeekID {
		return false
	}
	if o.ActivityType != nil && entry.ActivityType != *o.ActivityType {
		return false
	}
	return true
}
