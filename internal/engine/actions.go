package engine

import (
	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/booking"
	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/ir"
	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/ledger"
	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/monitor"
)

// handler applies one action to st. A *ledger.Error or *ir.FieldError
// return is a rejected transition; any other error is an engine fault.
type handler func(st *State, env ledger.Env, args ir.IRObject) (ir.IRObject, error)

type action struct {
	// readOnly actions run against committed state and are never logged.
	readOnly bool
	apply    handler
}

var actions = map[ir.ActionRef]action{
	"Provider.register":        {apply: providerRegister},
	"Provider.deactivate":      {apply: providerDeactivate},
	"Provider.updateEquipment": {apply: providerUpdateEquipment},
	"Provider.setHourlyRate":   {apply: providerSetHourlyRate},
	"Provider.get":             {readOnly: true, apply: providerGet},

	"Booking.book":           {apply: bookingBook},
	"Booking.setPreparation": {apply: bookingSetPreparation},
	"Booking.updateStatus":   {apply: bookingUpdateStatus},
	"Booking.get":            {readOnly: true, apply: bookingGet},

	"Rating.rate": {apply: ratingRate},

	"Garden.register":   {apply: gardenRegister},
	"Garden.deactivate": {apply: gardenDeactivate},
	"Garden.get":        {readOnly: true, apply: gardenGet},

	"Measurement.record": {apply: measurementRecord},
	"Measurement.latest": {readOnly: true, apply: measurementLatest},

	"RateModel.setRateProfile":   {apply: rateSetProfile},
	"RateModel.expectedLifespan": {readOnly: true, apply: rateExpectedLifespan},
	"RateModel.nutrientRelease":  {readOnly: true, apply: rateNutrientRelease},

	"Notification.checkAndNotify":   {apply: notificationCheck},
	"Notification.setThreshold":     {apply: notificationSetThreshold},
	"Notification.acknowledge":      {apply: notificationAcknowledge},
	"Notification.needsReplacement": {readOnly: true, apply: notificationNeedsReplacement},
	"Notification.get":              {readOnly: true, apply: notificationGet},
}

func lookupAction(ref ir.ActionRef) (action, bool) {
	a, ok := actions[ref]
	return a, ok
}

// Actions returns every dispatchable action name with its read-only flag.
func Actions() map[ir.ActionRef]bool {
	out := make(map[ir.ActionRef]bool, len(actions))
	for ref, a := range actions {
		out[ref] = a.readOnly
	}
	return out
}

// IsReadOnly reports whether ref is a known read-only action.
func IsReadOnly(ref ir.ActionRef) bool {
	a, ok := actions[ref]
	return ok && a.readOnly
}

// idArg reads a record id. Non-positive values are never assigned, so they
// pass through as 0 and the registry reports NotFound.
func idArg(args ir.IRObject, key string) (ledger.ID, error) {
	n, err := args.Int(key)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, nil
	}
	return ledger.ID(n), nil
}

func idResult(key string, id ledger.ID) ir.IRObject {
	return ir.IRObject{key: ir.IRInt(int64(id))}
}

// Provider

func providerRegister(st *State, env ledger.Env, args ir.IRObject) (ir.IRObject, error) {
	name, err := args.Text("name")
	if err != nil {
		return nil, err
	}
	area, err := args.Text("service_area")
	if err != nil {
		return nil, err
	}
	rate, err := args.Int("hourly_rate")
	if err != nil {
		return nil, err
	}
	equipment, err := args.StringList("equipment")
	if err != nil {
		return nil, err
	}
	id, err := st.Booking.Providers.Register(env, name, area, rate, equipment)
	if err != nil {
		return nil, err
	}
	return idResult("provider_id", id), nil
}

func providerDeactivate(st *State, env ledger.Env, args ir.IRObject) (ir.IRObject, error) {
	id, err := idArg(args, "provider_id")
	if err != nil {
		return nil, err
	}
	if err := st.Booking.Providers.Deactivate(env, id); err != nil {
		return nil, err
	}
	return idResult("provider_id", id), nil
}

func providerUpdateEquipment(st *State, env ledger.Env, args ir.IRObject) (ir.IRObject, error) {
	id, err := idArg(args, "provider_id")
	if err != nil {
		return nil, err
	}
	equipment, err := args.StringList("equipment")
	if err != nil {
		return nil, err
	}
	if err := st.Booking.Providers.UpdateEquipment(env, id, equipment); err != nil {
		return nil, err
	}
	return idResult("provider_id", id), nil
}

func providerSetHourlyRate(st *State, env ledger.Env, args ir.IRObject) (ir.IRObject, error) {
	id, err := idArg(args, "provider_id")
	if err != nil {
		return nil, err
	}
	rate, err := args.Int("hourly_rate")
	if err != nil {
		return nil, err
	}
	if err := st.Booking.Providers.SetHourlyRate(env, id, rate); err != nil {
		return nil, err
	}
	res := idResult("provider_id", id)
	res["hourly_rate"] = ir.IRInt(rate)
	return res, nil
}

func providerGet(st *State, _ ledger.Env, args ir.IRObject) (ir.IRObject, error) {
	id, err := idArg(args, "provider_id")
	if err != nil {
		return nil, err
	}
	p, err := st.Booking.Providers.Get(id)
	if err != nil {
		return nil, err
	}
	return ir.Encode(p)
}

// Booking

func bookingBook(st *State, env ledger.Env, args ir.IRObject) (ir.IRObject, error) {
	var req booking.BookingRequest
	var err error
	if req.ProviderID, err = idArg(args, "provider_id"); err != nil {
		return nil, err
	}
	if req.GardenSize, err = args.Int("garden_size"); err != nil {
		return nil, err
	}
	if req.ServiceType, err = args.Text("service_type"); err != nil {
		return nil, err
	}
	if req.ScheduledDate, err = args.Int("scheduled_date"); err != nil {
		return nil, err
	}
	if req.EstimatedHours, err = args.Int("estimated_hours"); err != nil {
		return nil, err
	}
	if req.PaymentAmount, err = args.Int("payment_amount"); err != nil {
		return nil, err
	}
	id, err := st.Booking.Bookings.Book(env, req)
	if err != nil {
		return nil, err
	}
	b, err := st.Booking.Bookings.Get(id)
	if err != nil {
		return nil, err
	}
	res := idResult("booking_id", id)
	res["total_cost"] = ir.IRInt(b.TotalCost)
	return res, nil
}

func bookingSetPreparation(st *State, env ledger.Env, args ir.IRObject) (ir.IRObject, error) {
	id, err := idArg(args, "booking_id")
	if err != nil {
		return nil, err
	}
	obj, err := args.Object("preparation")
	if err != nil {
		return nil, err
	}
	var prep booking.Preparation
	flags := []struct {
		key string
		dst *bool
	}{
		{"soil_testing_required", &prep.SoilTestingRequired},
		{"weed_removal", &prep.WeedRemoval},
		{"bed_edging", &prep.BedEdging},
		{"irrigation_check", &prep.IrrigationCheck},
	}
	for _, f := range flags {
		if *f.dst, err = obj.OptBool(f.key); err != nil {
			return nil, err
		}
	}
	if prep.MulchTypePreference, err = obj.OptText("mulch_type_preference", ""); err != nil {
		return nil, err
	}
	if prep.SpecialInstructions, err = obj.OptText("special_instructions", ""); err != nil {
		return nil, err
	}
	if err := st.Booking.Bookings.SetPreparation(env, id, prep); err != nil {
		return nil, err
	}
	return idResult("booking_id", id), nil
}

func bookingUpdateStatus(st *State, env ledger.Env, args ir.IRObject) (ir.IRObject, error) {
	id, err := idArg(args, "booking_id")
	if err != nil {
		return nil, err
	}
	label, err := args.Text("status")
	if err != nil {
		return nil, err
	}
	next, err := booking.ParseStatus(label)
	if err != nil {
		return nil, err
	}
	if err := st.Booking.Bookings.UpdateStatus(env, id, next); err != nil {
		return nil, err
	}
	res := idResult("booking_id", id)
	res["status"] = ir.IRString(next)
	return res, nil
}

func bookingGet(st *State, _ ledger.Env, args ir.IRObject) (ir.IRObject, error) {
	id, err := idArg(args, "booking_id")
	if err != nil {
		return nil, err
	}
	b, err := st.Booking.Bookings.Get(id)
	if err != nil {
		return nil, err
	}
	return ir.Encode(b)
}

// Rating

func ratingRate(st *State, env ledger.Env, args ir.IRObject) (ir.IRObject, error) {
	id, err := idArg(args, "booking_id")
	if err != nil {
		return nil, err
	}
	score, err := args.Int("score")
	if err != nil {
		return nil, err
	}
	rating, err := st.Booking.Ratings.Rate(env, id, score)
	if err != nil {
		return nil, err
	}
	res := idResult("booking_id", id)
	res["provider_rating"] = ir.IRInt(rating)
	return res, nil
}

// Garden

func gardenRegister(st *State, env ledger.Env, args ir.IRObject) (ir.IRObject, error) {
	var req monitor.GardenRequest
	var err error
	if req.Location, err = args.Text("location"); err != nil {
		return nil, err
	}
	if req.MulchType, err = args.Text("mulch_type"); err != nil {
		return nil, err
	}
	if req.InitialDepth, err = args.Int("initial_depth"); err != nil {
		return nil, err
	}
	if req.ApplicationDate, err = args.Int("application_date"); err != nil {
		return nil, err
	}
	if req.GardenSize, err = args.Int("garden_size"); err != nil {
		return nil, err
	}
	if req.SoilType, err = args.OptText("soil_type", ""); err != nil {
		return nil, err
	}
	id, err := st.Monitor.Gardens.Register(env, req)
	if err != nil {
		return nil, err
	}
	return idResult("garden_id", id), nil
}

func gardenDeactivate(st *State, env ledger.Env, args ir.IRObject) (ir.IRObject, error) {
	id, err := idArg(args, "garden_id")
	if err != nil {
		return nil, err
	}
	if err := st.Monitor.Gardens.Deactivate(env, id); err != nil {
		return nil, err
	}
	return idResult("garden_id", id), nil
}

func gardenGet(st *State, _ ledger.Env, args ir.IRObject) (ir.IRObject, error) {
	id, err := idArg(args, "garden_id")
	if err != nil {
		return nil, err
	}
	g, err := st.Monitor.Gardens.Get(id)
	if err != nil {
		return nil, err
	}
	return ir.Encode(g)
}

// Measurement

func measurementRecord(st *State, env ledger.Env, args ir.IRObject) (ir.IRObject, error) {
	id, err := idArg(args, "garden_id")
	if err != nil {
		return nil, err
	}
	var in monitor.MeasurementInput
	if in.Date, err = args.Int("measurement_date"); err != nil {
		return nil, err
	}
	if in.CurrentDepth, err = args.Int("current_depth"); err != nil {
		return nil, err
	}
	// Optional readings, checked in a fixed order so the first bad field is
	// reported the same way on replay.
	readings := []struct {
		key string
		dst *int64
	}{
		{"decomposition_rate", &in.DecompositionRate},
		{"soil_ph", &in.SoilPH},
		{"moisture_level", &in.MoistureLevel},
		{"nutrient_release", &in.NutrientRelease},
		{"weed_suppression", &in.WeedSuppression},
	}
	for _, r := range readings {
		if *r.dst, err = args.OptInt(r.key, 0); err != nil {
			return nil, err
		}
	}
	seq, err := st.Monitor.Tracker.Record(env, id, in)
	if err != nil {
		return nil, err
	}
	res := idResult("garden_id", id)
	res["measurement_seq"] = ir.IRInt(seq)
	return res, nil
}

func measurementLatest(st *State, _ ledger.Env, args ir.IRObject) (ir.IRObject, error) {
	id, err := idArg(args, "garden_id")
	if err != nil {
		return nil, err
	}
	m, err := st.Monitor.Tracker.Latest(id)
	if err != nil {
		return nil, err
	}
	return ir.Encode(m)
}

// RateModel

func rateSetProfile(st *State, env ledger.Env, args ir.IRObject) (ir.IRObject, error) {
	var p monitor.RateProfile
	var err error
	if p.MulchType, err = args.Text("mulch_type"); err != nil {
		return nil, err
	}
	if p.ExpectedMonthlyRate, err = args.Int("expected_monthly_rate"); err != nil {
		return nil, err
	}
	if p.NutrientReleasePattern, err = args.IntList("nutrient_release_pattern"); err != nil {
		return nil, err
	}
	if p.OptimalReplacementMonths, err = args.Int("optimal_replacement_months"); err != nil {
		return nil, err
	}
	if p.SoilImprovementFactor, err = args.OptInt("soil_improvement_factor", 0); err != nil {
		return nil, err
	}
	if err := st.Monitor.Rates.SetRateProfile(env, p); err != nil {
		return nil, err
	}
	return ir.IRObject{"mulch_type": ir.IRString(p.MulchType)}, nil
}

func rateExpectedLifespan(st *State, _ ledger.Env, args ir.IRObject) (ir.IRObject, error) {
	depth, err := args.Int("initial_depth")
	if err != nil {
		return nil, err
	}
	mulchType, err := args.Text("mulch_type")
	if err != nil {
		return nil, err
	}
	l, known, err := st.Monitor.Rates.ExpectedLifespanMonths(depth, mulchType)
	if err != nil {
		return nil, err
	}
	res := ir.IRObject{"known": ir.IRBool(known)}
	if known {
		res["months"] = ir.IRString(l.String())
		res["months_hundredths"] = ir.IRInt(l.Hundredths())
	}
	return res, nil
}

func rateNutrientRelease(st *State, _ ledger.Env, args ir.IRObject) (ir.IRObject, error) {
	mulchType, err := args.Text("mulch_type")
	if err != nil {
		return nil, err
	}
	months, err := args.Int("months_since_application")
	if err != nil {
		return nil, err
	}
	release, known, err := st.Monitor.Rates.NutrientRelease(mulchType, months)
	if err != nil {
		return nil, err
	}
	res := ir.IRObject{"known": ir.IRBool(known)}
	if known {
		res["release"] = ir.IRInt(release)
	}
	return res, nil
}

// Notification

func notificationCheck(st *State, env ledger.Env, args ir.IRObject) (ir.IRObject, error) {
	id, err := idArg(args, "garden_id")
	if err != nil {
		return nil, err
	}
	threshold, err := args.OptInt("threshold", 0)
	if err != nil {
		return nil, err
	}
	nid, created, err := st.Monitor.Notifications.CheckAndNotify(env, id, threshold)
	if err != nil {
		return nil, err
	}
	res := idResult("garden_id", id)
	res["created"] = ir.IRBool(created)
	if created {
		n, err := st.Monitor.Notifications.Get(nid)
		if err != nil {
			return nil, err
		}
		res["notification_id"] = ir.IRInt(int64(nid))
		res["urgency_level"] = ir.IRInt(n.UrgencyLevel)
		res["estimated_cost"] = ir.IRInt(n.EstimatedCost)
	}
	return res, nil
}

func notificationSetThreshold(st *State, env ledger.Env, args ir.IRObject) (ir.IRObject, error) {
	threshold, err := args.Int("threshold")
	if err != nil {
		return nil, err
	}
	if err := st.Monitor.Notifications.SetThreshold(env, threshold); err != nil {
		return nil, err
	}
	return ir.IRObject{"threshold": ir.IRInt(threshold)}, nil
}

func notificationAcknowledge(st *State, env ledger.Env, args ir.IRObject) (ir.IRObject, error) {
	id, err := idArg(args, "notification_id")
	if err != nil {
		return nil, err
	}
	if err := st.Monitor.Notifications.Acknowledge(env, id); err != nil {
		return nil, err
	}
	return idResult("notification_id", id), nil
}

func notificationNeedsReplacement(st *State, _ ledger.Env, args ir.IRObject) (ir.IRObject, error) {
	id, err := idArg(args, "garden_id")
	if err != nil {
		return nil, err
	}
	needs, err := st.Monitor.Notifications.NeedsReplacement(id)
	if err != nil {
		return nil, err
	}
	res := idResult("garden_id", id)
	res["needs_replacement"] = ir.IRBool(needs)
	return res, nil
}

func notificationGet(st *State, _ ledger.Env, args ir.IRObject) (ir.IRObject, error) {
	id, err := idArg(args, "notification_id")
	if err != nil {
		return nil, err
	}
	n, err := st.Monitor.Notifications.Get(id)
	if err != nil {
		return nil, err
	}
	return ir.Encode(n)
}
