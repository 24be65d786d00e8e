package venue

import (
	"fmt"
	"strings"
)

const reminderHeader = "Other venues:\n"

// FormatListEntry renders one listing line for display position index.
func FormatListEntry(v Summary, index int) string {
	address := v.Address
	if address == "" {
		address = ListNoAddr
	}

	return fmt.Sprintf("/venue%d %s, %s", index, v.Name, address)
}

// FormatList renders the whole result in display order, one venue per line.
func FormatList(result SearchResult) string {
	lines := make([]string, 0, len(result))
	for i, v := range result {
		lines = append(lines, FormatListEntry(v, i+1))
	}

	return strings.Join(lines, "\n")
}

// FormatReminder renders the trailing list sent after detail and tips replies.
func FormatReminder(result SearchResult) string {
	return reminderHeader + FormatList(result)
}

// FormatDetail renders the detail card for the venue at display position index.
func FormatDetail(v Summary, index int) string {
	address := v.Address
	if address == "" {
		address = DetailNoAddr
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s,\n", v.Name)
	fmt.Fprintf(&b, "Phone: %s\n", orDefault(v.Phone, NoPhone))
	fmt.Fprintf(&b, "Category: %s\n", orDefault(v.Category, NoCategory))
	fmt.Fprintf(&b, "Open hours: %s\n", orDefault(v.OpenHours, NoHoursInfo))
	fmt.Fprintf(&b, "%s (%sm)\n", address, orDefault(v.Distance, NoDistance))
	fmt.Fprintf(&b, "More: /tips%d", index)

	return b.String()
}
