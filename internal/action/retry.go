package action

// Retry calls fn until it succeeds or attempts calls have failed, retrying
// immediately. It returns the last error. At least one attempt is made.
func Retry(attempts int, fn func() error) error {
	var err error
	for {
		if err = fn(); err == nil {
			return nil
		}
		attempts--
		if attempts <= 0 {
			return err
		}
	}
}
