// Package services содержит бизнес-логику постановки подборок в очередь доставки WhatsApp.
package services

import (
	"log/slog"

	"github.com/donaoferta/offers-aggregator/internal/lib/rabbitmq"
	"github.com/donaoferta/offers-aggregator/internal/models"
)

// Publisher определяет метод публикации сообщения в брокер.
type Publisher interface {
	Publish(exchange, routingKey string, message any) error
}

// DeliveryMessage описывает задание на отправку подборки в WhatsApp.
type DeliveryMessage struct {
	Phone       string                    `json:"telefone"`
	Format      string                    `json:"formato"`
	Message     string                    `json:"mensagem,omitempty"`
	Flyers      []*models.FlyerWithMarket `json:"encartes,omitempty"`
	TotalOffers int                       `json:"total_ofertas"`
}

// DeliveryService ставит подборки в очередь доставки.
type DeliveryService struct {
	publisher Publisher
	log       *slog.Logger
}

// NewDeliveryService создает новый экземпляр DeliveryService.
func NewDeliveryService(publisher Publisher, log *slog.Logger) *DeliveryService {
	return &DeliveryService{
		publisher: publisher,
		log:       log,
	}
}

// Send публикует задание на доставку в очередь whatsapp_send.
func (s *DeliveryService) Send(msg DeliveryMessage) error {
	if err := s.publisher.Publish(rabbitmq.DeliveryExchange, rabbitmq.RoutingKeyWhatsAppSend, msg); err != nil {
		return err
	}

	s.log.Info("queued delivery",
		slog.String("phone", msg.Phone),
		slog.String("format", msg.Format),
		slog.Int("offers", msg.TotalOffers))

	return nil
}
