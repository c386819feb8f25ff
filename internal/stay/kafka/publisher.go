package kafka

import (
	"encoding/json"

	"ms-campsite/internal/config"
	basekafka "ms-campsite/internal/kafka"
	"ms-campsite/internal/models"
)

// Publisher implements stay.EventPublisher over the shared producer, one
// topic per lifecycle event.
type Publisher struct {
	Producer *basekafka.Producer
	Topics   config.TopicConfig
}

func NewPublisher(producer *basekafka.Producer, topics config.TopicConfig) *Publisher {
	return &Publisher{Producer: producer, Topics: topics}
}

func (p *Publisher) publish(topic string, event models.StayEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.Producer.Publish(topic, event.StayID, value)
}

func (p *Publisher) PublishStayRegistered(event models.StayEvent) error {
	return p.publish(p.Topics.StayRegistered, event)
}

func (p *Publisher) PublishStayCheckedIn(event models.StayEvent) error {
	return p.publish(p.Topics.StayCheckedIn, event)
}

func (p *Publisher) PublishStayMerged(event models.StayEvent) error {
	return p.publish(p.Topics.StayMerged, event)
}

func (p *Publisher) PublishStayCheckedOut(event models.StayEvent) error {
	return p.publish(p.Topics.StayCheckedOut, event)
}

func (p *Publisher) PublishPlotsAssigned(event models.StayEvent) error {
	return p.publish(p.Topics.PlotsAssigned, event)
}
