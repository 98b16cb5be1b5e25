package domain

// Capacity is the seat budget of an event at a point in time.
type Capacity struct {
	MaxSeats int
	Approved int
}

// Available returns the number of seats that can still be approved. Never negative.
func (c Capacity) Available() int {
	if n := c.MaxSeats - c.Approved; n > 0 {
		return n
	}
	return 0
}

// HasRoom reports whether one more registration may be approved.
func (c Capacity) HasRoom() bool {
	return c.Approved < c.MaxSeats
}

// SeatAvailability is the public view of an event's capacity.
// swagger:model SeatAvailability
type SeatAvailability struct {
	AvailableSeats int `json:"available_seats"`
	MaxSeats       int `json:"max_seats"`
	BookedSeats    int `json:"booked_seats"`
}

// Availability converts the capacity into its public view.
func (c Capacity) Availability() *SeatAvailability {
	return &SeatAvailability{
		AvailableSeats: c.Available(),
		MaxSeats:       c.MaxSeats,
		BookedSeats:    c.Approved,
	}
}
