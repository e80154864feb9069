package notify

import (
	"fmt"
	"strings"

	"github.com/phenrril/tiendavirtual/internal/domain"
)

func paymentLabel(o *domain.Order) string {
	switch {
	case o.PaymentStatus == domain.PaymentPaid:
		return "PAGO APROBADO"
	case o.PaymentMethod == domain.PaymentCashOnDelivery:
		return "CONTRA REEMBOLSO"
	default:
		return "PAGO PENDIENTE"
	}
}

// Summary is the plain text body shared by every channel.
func Summary(o *domain.Order, trackingURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pedido %s - %s\n", o.ID, paymentLabel(o))
	fmt.Fprintf(&b, "Nombre: %s\nEmail: %s\nTel: %s\n", o.Name, o.Email, o.Phone)
	fmt.Fprintf(&b, "Envío a: %s, %s CP:%s", o.Address, o.City, o.PostalCode)
	if o.ShippingMethod != nil {
		fmt.Fprintf(&b, " (%s)", o.ShippingMethod.Name)
	}
	b.WriteString("\nArtículos:\n")
	for _, it := range o.Items {
		fmt.Fprintf(&b, "- %s x%d %s\n", it.Title, it.Qty, it.Subtotal.StringFixed(2))
		if p := it.Personalization; p != nil && p.Text != "" {
			fmt.Fprintf(&b, "  Texto: %s\n", p.Text)
		}
	}
	fmt.Fprintf(&b, "Subtotal: %s\nEnvío: %s\nTotal: %s\n",
		o.Subtotal.StringFixed(2), o.ShippingCost.StringFixed(2), o.Total.StringFixed(2))
	if trackingURL != "" {
		fmt.Fprintf(&b, "Seguimiento: %s\n", trackingURL)
	}
	return b.String()
}

func TrackingURL(siteURL string, o *domain.Order) string {
	return strings.TrimRight(siteURL, "/") + "/track/" + o.TrackingToken
}
