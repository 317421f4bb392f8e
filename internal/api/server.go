package api

import "github.com/RoyceAzure/lab/checkout/internal/api/handler"

type Server struct {
	CheckoutHandler *handler.CheckoutHandler
	OrderHandler    *handler.OrderHandler
}

func NewServer(
	checkoutHandler *handler.CheckoutHandler,
	orderHandler *handler.OrderHandler,
) *Server {
	return &Server{
		CheckoutHandler: checkoutHandler,
		OrderHandler:    orderHandler,
	}
}
