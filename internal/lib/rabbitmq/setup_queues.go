package rabbitmq

// DeliveryExchange — обменник, через который рассылаются готовые подборки
// предложений WhatsApp-боту.
const DeliveryExchange = "deliveries"

// RoutingKeyWhatsAppSend — ключ маршрутизации очереди отправки в WhatsApp.
const RoutingKeyWhatsAppSend = "whatsapp.send"

type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

func GetDeliveryQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "whatsapp_send", RoutingKey: RoutingKeyWhatsAppSend},
		// при необходимости дополнительные очереди для других каналов доставки
	}
}
