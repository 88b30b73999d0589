package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/go-faster/errors"

	"github.com/xenking/pizza-cart/internal/api"
	"github.com/xenking/pizza-cart/internal/domain/address"
	"github.com/xenking/pizza-cart/internal/domain/cart"
	"github.com/xenking/pizza-cart/internal/domain/delivery"
	"github.com/xenking/pizza-cart/internal/domain/discount"
	"github.com/xenking/pizza-cart/internal/domain/location"
	"github.com/xenking/pizza-cart/internal/domain/pricing"
	"github.com/xenking/pizza-cart/internal/domain/product"
	"github.com/xenking/pizza-cart/internal/session"
	"github.com/xenking/pizza-cart/internal/session/deliveryswitch"
	"github.com/xenking/pizza-cart/internal/session/notify"
)

// catalog is the read-only part of the Backend API the shell browses.
type catalog interface {
	ListProducts(ctx context.Context) ([]product.Product, error)
	ApplicableDiscounts(ctx context.Context, req pricing.ApplicableRequest) ([]discount.Rule, error)
	Locations(ctx context.Context, lat, lng float64) ([]location.Nearby, error)
	ListAddresses(ctx context.Context, sessionID string) ([]address.Address, error)
}

var errUsage = errors.New("usage")

type command struct {
	usage string
	run   func(ctx context.Context, args []string) error
}

// shell renders the session as text and maps typed commands onto it.
type shell struct {
	sess     *session.Session
	catalog  catalog
	storeID  string
	out      io.Writer
	commands map[string]command
	names    map[string]string
}

func newShell(sess *session.Session, c catalog, storeID string, out io.Writer) *shell {
	s := &shell{
		sess:    sess,
		catalog: c,
		storeID: storeID,
		out:     out,
		names:   map[string]string{},
	}
	s.commands = map[string]command{
		"menu":      {usage: "menu", run: s.menu},
		"add":       {usage: "add <product> [qty] [variant] [addon[:qty]...]", run: s.add},
		"qty":       {usage: "qty <item> <quantity>", run: s.setQuantity},
		"rm":        {usage: "rm <item>", run: s.remove},
		"cart":      {usage: "cart", run: s.cart},
		"discounts": {usage: "discounts [search]", run: s.discounts},
		"apply":     {usage: "apply <discount>", run: s.apply},
		"unapply":   {usage: "unapply <discount>", run: s.unapply},
		"type":      {usage: "type <delivery|pickup|dine_in>", run: s.changeType},
		"confirm":   {usage: "confirm", run: s.confirm},
		"cancel":    {usage: "cancel", run: s.cancel},
		"stores":    {usage: "stores <lat> <lng>", run: s.stores},
		"addr":      {usage: "addr list | addr add <lat> <lng> <city> <line1...> | addr use <id> | addr rm <id>", run: s.address},
		"total":     {usage: "total", run: s.total},
	}
	return s
}

// printNotifier writes notifications as one-line status messages.
func printNotifier(w io.Writer) notify.Notifier {
	return notify.Func(func(n notify.Notification) {
		if n.Level == notify.LevelError {
			fmt.Fprintf(w, "! %s\n", n.Message)
			return
		}
		fmt.Fprintf(w, "* %s\n", n.Message)
	})
}

// Run loads the cart and executes commands from in until "quit", EOF or
// ctx cancellation.
func (s *shell) Run(ctx context.Context, in io.Reader) error {
	if res := s.sess.Load(ctx); !res.Success {
		return errors.Wrap(res.Err, "load cart")
	}
	fmt.Fprintf(s.out, "Session %s. Type \"help\" for commands.\n", s.sess.ID)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(s.out, "> ")
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if s.exec(ctx, line) {
				return nil
			}
		}
	}
}

// exec runs one command line and reports whether the shell should exit.
func (s *shell) exec(ctx context.Context, line string) (quit bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	name, args := fields[0], fields[1:]
	switch name {
	case "quit", "exit":
		return true
	case "help":
		s.help()
		return false
	}
	cmd, ok := s.commands[name]
	if !ok {
		fmt.Fprintf(s.out, "unknown command %q\n", name)
		return false
	}
	if err := cmd.run(ctx, args); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(s.out, "usage: %s\n", cmd.usage)
		} else {
			fmt.Fprintf(s.out, "error: %s\n", err)
		}
	}
	return false
}

func (s *shell) help() {
	names := make([]string, 0, len(s.commands))
	for name := range s.commands {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(s.out, "  %s\n", s.commands[name].usage)
	}
	fmt.Fprintln(s.out, "  quit")
}

func (s *shell) menu(ctx context.Context, _ []string) error {
	products, err := s.catalog.ListProducts(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	for _, p := range products {
		s.names[p.ID] = p.Name
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Price.StringFixed(2), strings.Join(p.AvailableDeliveryTypes.Strings(), ","))
		for _, v := range p.Variants {
			fmt.Fprintf(tw, "\t  variant %s\t%s\t%s\n", v.ID, v.Name, signed(v.PriceDelta.StringFixed(2)))
		}
		for _, a := range p.Addons {
			fmt.Fprintf(tw, "\t  addon %s\t%s\t+%s\n", a.ID, a.Name, a.Price.StringFixed(2))
		}
	}
	return tw.Flush()
}

func signed(v string) string {
	if strings.HasPrefix(v, "-") {
		return v
	}
	return "+" + v
}

func (s *shell) add(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	it := cart.Item{ProductID: args[0], Quantity: 1}
	if len(args) > 1 {
		q, err := strconv.Atoi(args[1])
		if err != nil {
			return errUsage
		}
		it.Quantity = q
	}
	if len(args) > 2 && args[2] != "-" {
		it.VariantID = args[2]
	}
	for _, a := range args[min(len(args), 3):] {
		id, n, err := parseAddon(a)
		if err != nil {
			return err
		}
		if it.Addons == nil {
			it.Addons = map[string]int{}
		}
		it.Addons[id] += n
	}
	s.sess.Hooks.AddToCart(ctx, it)
	return nil
}

func parseAddon(arg string) (string, int, error) {
	id, qty, found := strings.Cut(arg, ":")
	if !found {
		return id, 1, nil
	}
	n, err := strconv.Atoi(qty)
	if err != nil {
		return "", 0, errors.Errorf("addon %q: quantity must be a number", arg)
	}
	return id, n, nil
}

// itemID accepts a cart item id or its 1-based position in the cart.
func (s *shell) itemID(arg string) string {
	items := s.sess.Store.Items()
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(items) {
		return items[n-1].ID
	}
	return arg
}

func (s *shell) setQuantity(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	q, err := strconv.Atoi(args[1])
	if err != nil {
		return errUsage
	}
	s.sess.Hooks.UpdateCartItem(ctx, s.itemID(args[0]), api.CartItemPatch{Quantity: &q})
	return nil
}

func (s *shell) remove(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	s.sess.Hooks.RemoveCartItem(ctx, s.itemID(args[0]))
	return nil
}

func (s *shell) cart(context.Context, []string) error {
	snap := s.sess.Store.Snapshot()
	if len(snap.Items) == 0 {
		fmt.Fprintln(s.out, "Cart is empty.")
	}
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	for i, it := range snap.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\tx%d\t%s\n", i+1, s.productName(it.ProductID), it.VariantID, it.Quantity, formatAddons(it.Addons))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	d := snap.Delivery
	mode := string(d.Type)
	if !d.Selected {
		mode += " (not chosen)"
	}
	fmt.Fprintf(s.out, "Delivery: %s\n", mode)
	if d.AddressID != "" {
		fmt.Fprintf(s.out, "Address: %s\n", d.AddressID)
	}
	if len(snap.Discounts) > 0 {
		fmt.Fprintf(s.out, "Discounts: %s\n", strings.Join(snap.Discounts, ", "))
	}
	if st := s.sess.Delivery.State(); st == deliveryswitch.PendingConfirmation {
		s.printPending()
	}
	return nil
}

func (s *shell) productName(id string) string {
	if name, ok := s.names[id]; ok {
		return name
	}
	return id
}

func formatAddons(addons map[string]int) string {
	if len(addons) == 0 {
		return ""
	}
	parts := make([]string, 0, len(addons))
	for id, n := range addons {
		parts = append(parts, fmt.Sprintf("%s:%d", id, n))
	}
	slices.Sort(parts)
	return "+" + strings.Join(parts, ",")
}

func (s *shell) discounts(ctx context.Context, args []string) error {
	snap := s.sess.Store.Snapshot()
	if len(snap.Items) == 0 {
		fmt.Fprintln(s.out, "Add something to the cart first.")
		return nil
	}
	// Same filter apply uses: no type until the user picked one.
	var dt delivery.Type
	if snap.Delivery.Selected {
		dt = snap.Delivery.Type
	}
	rules, err := s.catalog.ApplicableDiscounts(ctx, pricing.ApplicableRequest{
		CartIDs:      s.sess.Store.CartIDs(),
		StoreID:      s.storeID,
		Search:       strings.Join(args, " "),
		DeliveryType: dt,
	})
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		fmt.Fprintln(s.out, "No discounts apply to this cart.")
		return nil
	}
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	for _, r := range rules {
		mark := " "
		if slices.Contains(snap.Discounts, r.ID) {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", mark, r.ID, r.Code, r.Description)
	}
	return tw.Flush()
}

func (s *shell) apply(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	s.sess.Hooks.ApplyDiscount(ctx, args[0])
	return nil
}

func (s *shell) unapply(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	s.sess.Hooks.RemoveDiscount(ctx, args[0])
	return nil
}

func (s *shell) changeType(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	t, err := delivery.Parse(args[0])
	if err != nil {
		return err
	}
	st, err := s.sess.Delivery.RequestChange(ctx, t)
	if err != nil {
		return err
	}
	switch st {
	case deliveryswitch.Idle:
		fmt.Fprintf(s.out, "Delivery type is now %s.\n", t)
	case deliveryswitch.PendingConfirmation:
		s.printPending()
	}
	return nil
}

func (s *shell) printPending() {
	target, items := s.sess.Delivery.Pending()
	fmt.Fprintf(s.out, "Switching to %s removes:\n", target)
	for _, it := range items {
		fmt.Fprintf(s.out, "  - %s x%d\n", s.productName(it.ProductID), it.Quantity)
	}
	fmt.Fprintln(s.out, "Type \"confirm\" to continue or \"cancel\" to keep your cart.")
}

func (s *shell) confirm(ctx context.Context, _ []string) error {
	if err := s.sess.Delivery.Confirm(ctx); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Delivery type is now %s.\n", s.sess.Store.Delivery().Type)
	return nil
}

func (s *shell) cancel(context.Context, []string) error {
	if s.sess.Delivery.Cancel() {
		fmt.Fprintln(s.out, "Kept the current delivery type.")
	} else {
		fmt.Fprintln(s.out, "Nothing to cancel.")
	}
	return nil
}

func (s *shell) stores(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	lat, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return errUsage
	}
	lng, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return errUsage
	}
	list, err := s.catalog.Locations(ctx, lat, lng)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	for _, n := range list {
		reach := ""
		if n.WithinDeliveryRadius {
			reach = "delivers here"
		}
		fmt.Fprintf(tw, "%s\t%s\t%.1f km\t%s\t%s\n", n.ID, n.Name, n.DistanceKm, strings.Join(n.DeliveryTypes.Strings(), ","), reach)
	}
	return tw.Flush()
}

func (s *shell) address(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	switch sub, rest := args[0], args[1:]; sub {
	case "list":
		list, err := s.catalog.ListAddresses(ctx, s.sess.ID)
		if err != nil {
			return err
		}
		selected := s.sess.Store.Delivery().AddressID
		for _, a := range list {
			mark := " "
			if a.ID == selected {
				mark = "*"
			}
			fmt.Fprintf(s.out, "%s %s  %s, %s\n", mark, a.ID, a.Line1, a.City)
		}
		return nil
	case "add":
		if len(rest) < 4 {
			return errUsage
		}
		lat, err := strconv.ParseFloat(rest[0], 64)
		if err != nil {
			return errUsage
		}
		lng, err := strconv.ParseFloat(rest[1], 64)
		if err != nil {
			return errUsage
		}
		created, res := s.sess.Hooks.CreateAddress(ctx, address.Address{
			Lat:   lat,
			Lng:   lng,
			City:  rest[2],
			Line1: strings.Join(rest[3:], " "),
		})
		if res.Success {
			fmt.Fprintf(s.out, "Address %s selected.\n", created.ID)
		}
		return nil
	case "use":
		if len(rest) != 1 {
			return errUsage
		}
		s.sess.Hooks.SelectAddress(ctx, rest[0])
		return nil
	case "rm":
		if len(rest) != 1 {
			return errUsage
		}
		s.sess.Hooks.DeleteAddress(ctx, rest[0])
		return nil
	default:
		return errUsage
	}
}

// total refreshes the summary right away instead of waiting for the
// debounce and prints it.
func (s *shell) total(ctx context.Context, _ []string) error {
	if err := s.sess.Summary.Flush(ctx); err != nil {
		// Already reported by the notifier.
		return nil
	}
	snap := s.sess.Store.Snapshot()
	switch {
	case len(snap.Items) == 0:
		fmt.Fprintln(s.out, "Cart is empty.")
		return nil
	case !snap.Delivery.Selected:
		fmt.Fprintln(s.out, "Choose a delivery type to see the total.")
		return nil
	case snap.Summary == nil:
		fmt.Fprintln(s.out, "Summary unavailable.")
		return nil
	}
	printSummary(s.out, snap.Summary)
	return nil
}

func printSummary(w io.Writer, sum *pricing.Summary) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	for _, l := range sum.Lines {
		fmt.Fprintf(tw, "%s x%d\t%s\t\n", l.Name, l.Quantity, l.LineTotal.StringFixed(2))
	}
	fmt.Fprintf(tw, "Subtotal\t%s\t\n", sum.Subtotal.StringFixed(2))
	for _, d := range sum.AppliedDiscounts {
		fmt.Fprintf(tw, "Discount %s\t-%s\t\n", d.Code, d.Amount.StringFixed(2))
	}
	if sum.DeliveryFee.IsPositive() {
		fmt.Fprintf(tw, "Delivery fee\t%s\t\n", sum.DeliveryFee.StringFixed(2))
	}
	fmt.Fprintf(tw, "Tax\t%s\t\n", sum.Tax.StringFixed(2))
	fmt.Fprintf(tw, "Total\t%s\t\n", sum.Total.StringFixed(2))
	_ = tw.Flush()
}
