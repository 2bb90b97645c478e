package server

// Server объединяет HTTP-серверы отдельных сущностей.
type Server struct {
	DealServer
}

func NewServer(
	dealServer DealServer,
) Server {
	return Server{
		DealServer: dealServer,
	}
}
