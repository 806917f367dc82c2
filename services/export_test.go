package services

// withOrderHooks returns a copy of s that runs h at its interleaving points
func withOrderHooks(s *OrderService, h hooks) *OrderService {
	c := *s
	c.hooks = h
	return &c
}

// withPaymentHooks returns a copy of s that runs h at its interleaving points
func withPaymentHooks(s *PaymentService, h hooks) *PaymentService {
	c := *s
	c.hooks = h
	return &c
}
