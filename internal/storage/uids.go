package storage

import "strings"

// joinUIDs сериализует список UID в строку для передачи в string_to_array.
// Драйвер database/sql не принимает срезы напрямую, поэтому массивы uuid
// конвертируются на стороне SQL.
func joinUIDs(uids []string) string {
	return strings.Join(uids, ",")
}

func splitUIDs(joined string) []string {
	if joined == "" {
		return nil
	}
	return strings.Split(joined, ",")
}
