package models

import "fmt"

// ProviderKind selects one of the three provider families. Each family has its
// own provider table and its own set of request tables.
type ProviderKind string

const (
	KindCoal      ProviderKind = "coal"
	KindTransport ProviderKind = "transport"
	KindLabour    ProviderKind = "labour"
)

var Kinds = []ProviderKind{KindCoal, KindTransport, KindLabour}

func ParseKind(s string) (ProviderKind, error) {
	switch k := ProviderKind(s); k {
	case KindCoal, KindTransport, KindLabour:
		return k, nil
	}
	return "", fmt.Errorf("unknown provider kind %q", s)
}

// ProvidersTable is coal_providers, transport_providers or labour_providers.
func (k ProviderKind) ProvidersTable() string {
	return string(k) + "_providers"
}

func (k ProviderKind) Table(l ListName) string {
	return "manufacturer_" + string(k) + "_" + string(l)
}

// OfferingColumn is the per-kind column that holds what is being asked for.
func (k ProviderKind) OfferingColumn() string {
	switch k {
	case KindTransport:
		return "vehicle_type"
	case KindLabour:
		return "labour_type"
	default:
		return "coal_type"
	}
}

// ListName names one of the four request lists on a dashboard.
type ListName string

const (
	ListInquiries  ListName = "inquiries"
	ListQuotations ListName = "quotations"
	ListOrders     ListName = "orders"
	ListRatings    ListName = "ratings"
)

var Lists = []ListName{ListInquiries, ListQuotations, ListOrders, ListRatings}

func ParseList(s string) (ListName, error) {
	switch l := ListName(s); l {
	case ListInquiries, ListQuotations, ListOrders, ListRatings:
		return l, nil
	}
	return "", fmt.Errorf("unknown list %q", s)
}
