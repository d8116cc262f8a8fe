package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UUID primary keys are assigned client-side so inserts behave the same on
// Postgres and the sqlite test databases.

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (u *User) BeforeCreate(*gorm.DB) error               { ensureID(&u.ID); return nil }
func (c *Category) BeforeCreate(*gorm.DB) error           { ensureID(&c.ID); return nil }
func (l *Listing) BeforeCreate(*gorm.DB) error            { ensureID(&l.ID); return nil }
func (c *Cart) BeforeCreate(*gorm.DB) error               { ensureID(&c.ID); return nil }
func (c *CartItem) BeforeCreate(*gorm.DB) error           { ensureID(&c.ID); return nil }
func (o *Order) BeforeCreate(*gorm.DB) error              { ensureID(&o.ID); return nil }
func (o *OrderItem) BeforeCreate(*gorm.DB) error          { ensureID(&o.ID); return nil }
func (p *PaymentCustomer) BeforeCreate(*gorm.DB) error    { ensureID(&p.ID); return nil }
func (p *PaymentTransaction) BeforeCreate(*gorm.DB) error { ensureID(&p.ID); return nil }
func (b *BillingPlan) BeforeCreate(*gorm.DB) error        { ensureID(&b.ID); return nil }
func (s *Subscription) BeforeCreate(*gorm.DB) error       { ensureID(&s.ID); return nil }
func (p *Payout) BeforeCreate(*gorm.DB) error             { ensureID(&p.ID); return nil }
func (n *Notification) BeforeCreate(*gorm.DB) error       { ensureID(&n.ID); return nil }
func (r *Review) BeforeCreate(*gorm.DB) error             { ensureID(&r.ID); return nil }
func (r *Report) BeforeCreate(*gorm.DB) error             { ensureID(&r.ID); return nil }
func (e *OutboxEvent) BeforeCreate(*gorm.DB) error        { ensureID(&e.ID); return nil }
