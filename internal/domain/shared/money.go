package shared

import "fmt"

// FormatRupees renders a paise amount as a rupee string for replies,
// e.g. 150000 -> "₹1500", 120050 -> "₹1200.50"
func FormatRupees(paise int64) string {
	sign := ""
	if paise < 0 {
		sign = "-"
		paise = -paise
	}
	rupees := paise / 100
	rem := paise % 100
	if rem == 0 {
		return fmt.Sprintf("%s₹%d", sign, rupees)
	}
	return fmt.Sprintf("%s₹%d.%02d", sign, rupees, rem)
}
