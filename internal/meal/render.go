package meal

import (
	"fmt"
	"io"
	"time"
)

// Render prints menu as plain text.
func Render(w io.Writer, menu Menu) error {
	header := menu.School
	if header == "" {
		header = "School meals"
	}
	if t, err := time.Parse(dateLayout, menu.Date); err == nil {
		header += " · " + t.Format("2006-01-02")
	}
	if menu.Mock {
		header += " (sample menu)"
	}
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}
	if len(menu.Meals) == 0 {
		_, err := fmt.Fprintln(w, "No meals found.")
		return err
	}
	for _, m := range menu.Meals {
		title := "[" + m.Name + "]"
		if m.Calories != "" {
			title += " " + m.Calories
		}
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
		for _, dish := range m.Dishes {
			if _, err := fmt.Fprintf(w, "  - %s\n", dish); err != nil {
				return err
			}
		}
	}
	return nil
}
