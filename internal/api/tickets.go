package api

func (c *Client) CreateTicket(input CreateTicketInput) (*Ticket, error) {
	data, err := c.post("/tickets", input)
	if err != nil {
		return nil, err
	}
	return decodeOne[Ticket](data)
}
