package preference

// LockedUsers is the number of users with a held or awaited write lock.
func LockedUsers(rk *Ranker) int {
	return rk.locks.Size()
}
