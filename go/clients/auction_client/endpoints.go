package auction_client

const (
	// REST endpoints
	ProductsEndpoint       = "/api/products/"
	ProductEndpoint        = "/api/products/%s"
	TempBidEndpoint        = "/api/products/tempdata/%s"
	StatusEndpoint         = "/api/products/statuspatch/%s"
	DeleteSettledEndpoint  = "/api/products/deleteSuccessProduct/%s"
	OrdersEndpoint         = "/api/orders/"
	OrderByProductEndpoint = "/api/orders/product/%s"
	OrdersByBuyerEndpoint  = "/api/orders/buyer/%s"
	UserByEmailEndpoint    = "/api/auth/user/user/%s"

	// WebSocketEndpoint is the room socket path.
	WebSocketEndpoint = "/ws"
)
