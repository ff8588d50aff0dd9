package domain

type User struct {
	ID    int64
	Name  string
	Email string
}

type Category struct {
	ID   int64
	Name string
}

type Location struct {
	ID  int64
	Lat float64
	Lon float64
}
