package shared

// IntentLabel identifies what the user asked for, as classified by the NLU provider
type IntentLabel string

const (
	IntentGenerateInvoice IntentLabel = "generate_invoice"
	IntentCheckInventory  IntentLabel = "check_inventory"
	IntentCheckUdhaar     IntentLabel = "check_udhaar"
	IntentRecordPayment   IntentLabel = "process_payment"
	IntentSendReminder    IntentLabel = "send_reminder"
	IntentAddCustomer     IntentLabel = "add_customer"
	IntentAddInventory    IntentLabel = "add_inventory"
	IntentBulkOrder       IntentLabel = "bulk_order"
	IntentLowStockAlert   IntentLabel = "low_stock_alert"
	IntentUnknown         IntentLabel = "unknown"
)

// Well-known slot names produced by the NLU provider. Slot values are raw
// strings; entity resolution turns them into typed references.
const (
	SlotCustomerName  = "customer_name"
	SlotAmount        = "amount"
	SlotQuantity      = "quantity"
	SlotFabricType    = "fabric_type"
	SlotColor         = "color"
	SlotWidth         = "width"
	SlotPaymentMethod = "payment_method"
	SlotPhone         = "phone"
)

// Hypothesis is one ranked interpretation of an utterance returned by the
// NLU adapter. Confidence is in [0,1].
type Hypothesis struct {
	Intent     IntentLabel       `json:"intent"`
	Slots      map[string]string `json:"slots"`
	Confidence float64           `json:"confidence"`
}
