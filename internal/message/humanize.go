package message

import "strings"

// HumanizeType shortens an assembly-qualified type name for display.
//
//	"Shipping.Messages.OrderShipped, Shipping.Messages" → "OrderShipped"
//	"Sales.OrderSaga+Timeout, Sales"                    → "OrderSaga.Timeout"
func HumanizeType(typeName string) string {
	if typeName == "" {
		return ""
	}
	class, _, _ := strings.Cut(typeName, ",")
	class = strings.TrimSpace(class)
	if i := strings.LastIndex(class, "."); i >= 0 {
		class = class[i+1:]
	}
	return strings.ReplaceAll(class, "+", ".")
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
