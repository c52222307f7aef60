package services

import (
	"fmt"
	"strings"

	"github.com/donaoferta/offers-aggregator/internal/models"
)

// offerGroup хранит предложения одного супермаркета в порядке их поступления.
type offerGroup struct {
	name   string
	offers []*models.OfferWithMarket
}

// groupByMarket группирует предложения по супермаркету, сохраняя порядок появления.
func groupByMarket(offers []*models.OfferWithMarket) []offerGroup {
	groups := make([]offerGroup, 0)
	index := make(map[string]int)
	for _, offer := range offers {
		i, ok := index[offer.SupermarketName]
		if !ok {
			i = len(groups)
			index[offer.SupermarketName] = i
			groups = append(groups, offerGroup{name: offer.SupermarketName})
		}
		groups[i].offers = append(groups[i].offers, offer)
	}
	return groups
}

// renderTextMessage собирает текст WhatsApp-сообщения с подборкой предложений.
func renderTextMessage(offers []*models.OfferWithMarket) string {
	var b strings.Builder
	b.WriteString("🛒 *Ofertas Especiais para Você!*\n\n")

	for _, group := range groupByMarket(offers) {
		fmt.Fprintf(&b, "🏪 *%s*\n", group.name)
		for i, offer := range group.offers {
			if i == maxOffersPerMarket {
				break
			}
			fmt.Fprintf(&b, "• %s\n", offer.ProductName)
			fmt.Fprintf(&b, "  💰 `R$ %.2f`\n", offer.Price)
			fmt.Fprintf(&b, "  📅 Válido até %s\n\n", offer.ValidUntil.Format("02/01/2006"))
		}
		b.WriteString("\n")
	}

	b.WriteString("✨ _Dona Oferta - Economize sempre!_")
	return b.String()
}
