package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/term"

	"permisconnect/internal/api"
	"permisconnect/internal/auth"
	"permisconnect/internal/autoecoles"
	"permisconnect/internal/booking"
	"permisconnect/internal/chat"
	"permisconnect/internal/clients"
	"permisconnect/internal/courses"
	"permisconnect/internal/events"
	"permisconnect/internal/live"
	"permisconnect/internal/models"
	"permisconnect/internal/moniteurs"
	"permisconnect/internal/practice"
	"permisconnect/internal/session"
	"permisconnect/pkg/validation"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	out io.Writer
	in  *bufio.Reader
	log *zap.Logger

	sess       *session.Session
	auth       *auth.Service
	clients    *clients.Service
	autoecoles *autoecoles.Service
	courses    *courses.Service
	schedule   *booking.Schedule
	liveURL    string
	chatOpts   []chat.Option

	command string
}

// newCommandLine wires every service on top of one session and one API
// client.
func newCommandLine(apiURL, liveURL string, sess *session.Session, log *zap.Logger, out io.Writer, in io.Reader, opts ...api.Option) (*commandLine, error) {
	cli := &commandLine{out: out, in: bufio.NewReader(in), log: log.Named("cli"), sess: sess, liveURL: liveURL}

	opts = append([]api.Option{
		api.WithLogger(log),
		api.WithUnauthorizedHandler(func() {
			if cli.command != "login" {
				fmt.Fprintln(cli.out, "Votre session a expiré. Reconnectez-vous avec: permis login -email ...")
			}
		}),
	}, opts...)
	c, err := api.New(apiURL, sess, opts...)
	if err != nil {
		return nil, err
	}

	cli.clients = clients.NewService(c)
	cli.auth = auth.NewService(c, cli.clients, log)
	cli.autoecoles = autoecoles.NewService(c, cli.clients, log)
	cli.courses = courses.NewService(c, log)
	cli.schedule = booking.NewSchedule(booking.NewAggregator(moniteurs.NewService(c), sess, log))
	return cli, nil
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  login -email EMAIL                 - log in (the password is prompted)")
	fmt.Fprintln(cli.out, "  register -email EMAIL -nom NOM ... - create an account")
	fmt.Fprintln(cli.out, "  logout                             - forget the session")
	fmt.Fprintln(cli.out, "  whoami                             - show the logged-in client")
	fmt.Fprintln(cli.out, "  profile [-telephone T] [-adresse A] [-email E] - show or edit the profile")
	fmt.Fprintln(cli.out, "  autoecoles                         - list driving schools")
	fmt.Fprintln(cli.out, "  select -id ID                      - choose your driving school")
	fmt.Fprintln(cli.out, "  courses                            - list courses")
	fmt.Fprintln(cli.out, "  view -id ID                        - open a course")
	fmt.Fprintln(cli.out, "  pay -id ID                         - get a payment link for a course")
	fmt.Fprintln(cli.out, "  paid -id ID                        - record a completed payment")
	fmt.Fprintln(cli.out, "  slots [-date YYYY-MM-DD]           - show the lesson calendar")
	fmt.Fprintln(cli.out, "  book -id SLOT                      - book a lesson")
	fmt.Fprintln(cli.out, "  cancel -id SLOT                    - cancel one of your lessons")
	fmt.Fprintln(cli.out, "  test                               - take the practice test")
	fmt.Fprintln(cli.out, "  chat                               - talk to the assistant")
	fmt.Fprintln(cli.out, "  watch [-date YYYY-MM-DD]           - follow the calendar live")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	cli.command = args[1]

	fs := flag.NewFlagSet(args[1], flag.ContinueOnError)
	fs.SetOutput(cli.out)
	id := fs.Int64("id", 0, "identifier")
	email := fs.String("email", "", "email address")
	date := fs.String("date", "", "day to show (YYYY-MM-DD)")
	nom := fs.String("nom", "", "last name")
	prenom := fs.String("prenom", "", "first name")
	telephone := fs.String("telephone", "", "phone number")
	adresse := fs.String("adresse", "", "postal address")
	naissance := fs.String("naissance", "", "birth date (YYYY-MM-DD)")
	permis := fs.String("permis", "", "licence number")
	typePermis := fs.String("type", "B", "licence category")

	if err := fs.Parse(args[2:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return errHelp
		}
		return err
	}
	needID := func() error {
		if *id <= 0 {
			fs.Usage()
			return errHelp
		}
		return nil
	}

	switch args[1] {
	case "login":
		if *email == "" {
			fs.Usage()
			return errHelp
		}
		pwd, err := cli.password()
		if err != nil {
			return err
		}
		return cli.login(ctx, *email, pwd)
	case "register":
		pwd, err := cli.password()
		if err != nil {
			return err
		}
		return cli.register(ctx, models.ClientRequest{
			Nom: *nom, Prenom: *prenom, Email: *email, Password: pwd, Telephone: *telephone,
			Adresse: *adresse, DateNaissance: *naissance, NumeroPermis: *permis, TypePermis: *typePermis,
		})
	case "logout":
		if err := cli.auth.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cli.out, "Déconnecté.")
		return nil
	case "whoami":
		return cli.whoami()
	case "profile":
		return cli.profile(ctx, models.ProfileUpdate{Nom: *nom, Prenom: *prenom, Email: *email, Telephone: *telephone, Adresse: *adresse})
	case "autoecoles":
		return cli.listAutoEcoles(ctx)
	case "select":
		if err := needID(); err != nil {
			return err
		}
		return cli.selectAutoEcole(ctx, *id)
	case "courses":
		return cli.listCourses(ctx)
	case "view":
		if err := needID(); err != nil {
			return err
		}
		return cli.viewCourse(ctx, *id)
	case "pay":
		if err := needID(); err != nil {
			return err
		}
		return cli.pay(ctx, *id)
	case "paid":
		if err := needID(); err != nil {
			return err
		}
		if err := cli.courses.ConfirmPayment(ctx, *id); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "Paiement du cours %d enregistré.\n", *id)
		return nil
	case "slots":
		return cli.slots(ctx, *date)
	case "book":
		if err := needID(); err != nil {
			return err
		}
		return cli.book(ctx, *id)
	case "cancel":
		if err := needID(); err != nil {
			return err
		}
		return cli.cancel(ctx, *id)
	case "test":
		return cli.practiceTest(ctx)
	case "chat":
		return cli.chat()
	case "watch":
		return cli.watch(ctx, *date)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) password() (string, error) {
	fmt.Fprint(cli.out, "Mot de passe: ")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

// readLine returns the next trimmed input line; io.EOF once input ends.
func (cli *commandLine) readLine() (string, error) {
	line, err := cli.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// describe turns err into the message shown to the user.
func describe(err error) string {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		parts := make([]string, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			parts = append(parts, f.Field+" "+f.Error)
		}
		return "Données invalides: " + strings.Join(parts, ", ")
	case errors.Is(err, booking.ErrNoAutoEcoleSelected):
		return "Choisissez d'abord une auto-école: permis select -id ID"
	case errors.Is(err, booking.ErrNotAuthenticated), errors.Is(err, courses.ErrNotAuthenticated):
		return "Vous devez être connecté: permis login -email EMAIL"
	case errors.Is(err, booking.ErrSlotUnavailable):
		return "Ce créneau n'est plus disponible."
	case errors.Is(err, booking.ErrNotHolder):
		return "Vous ne pouvez annuler que vos propres réservations."
	case errors.Is(err, booking.ErrStaleView):
		return "Modification enregistrée, mais le calendrier n'a pas pu être rechargé."
	case api.IsUnauthorized(err):
		return "Session expirée, veuillez vous reconnecter."
	case api.IsConflict(err):
		return "Ce créneau vient d'être modifié par quelqu'un d'autre."
	case api.IsForbidden(err):
		return "Action non autorisée."
	case api.IsNotFound(err):
		return "Introuvable."
	case api.IsTransient(err):
		return "Le serveur ne répond pas. Réessayez dans un instant."
	case api.IsValidation(err):
		if msg := api.Message(err); msg != "" {
			return msg
		}
	}
	return err.Error()
}

func (cli *commandLine) login(ctx context.Context, email, pwd string) error {
	p, err := cli.auth.Login(ctx, email, pwd)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Bienvenue %s !\n", p.FullName())
	if p.AutoEcole != nil && p.AutoEcole.ID != 0 {
		if _, err := cli.autoecoles.Select(ctx, p.AutoEcole.ID); err != nil {
			cli.log.Warn("restore auto-école after login", zap.Int64("autoEcoleId", p.AutoEcole.ID), zap.Error(err))
			fmt.Fprintf(cli.out, "Attention: impossible de sélectionner votre auto-école (%s). Utilisez: permis select\n", describe(err))
			return nil
		}
		fmt.Fprintf(cli.out, "Auto-école: %s\n", p.AutoEcole.Nom)
	}
	return nil
}

func (cli *commandLine) register(ctx context.Context, req models.ClientRequest) error {
	p, err := cli.auth.Register(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Compte créé pour %s. Connectez-vous avec: permis login -email %s\n", p.FullName(), p.Email)
	return nil
}

func (cli *commandLine) whoami() error {
	p, ok := cli.auth.CurrentUser()
	if !ok {
		fmt.Fprintln(cli.out, "Non connecté.")
		return nil
	}
	fmt.Fprintf(cli.out, "%s <%s> (client %d)\n", p.FullName(), p.Email, p.ID)
	if ae, ok := cli.sess.SelectedAutoEcole(); ok {
		fmt.Fprintf(cli.out, "Auto-école: %s\n", ae.Nom)
	}
	if score, ok := cli.sess.LastTestScore(); ok {
		fmt.Fprintf(cli.out, "Dernier test blanc: %.0f%%\n", score)
	}
	return nil
}

func (cli *commandLine) profile(ctx context.Context, upd models.ProfileUpdate) error {
	id, ok := cli.sess.ClientID()
	if !ok {
		return booking.ErrNotAuthenticated
	}
	var (
		p   *models.Profile
		err error
	)
	if upd == (models.ProfileUpdate{}) {
		p, err = cli.clients.Get(ctx, id)
	} else {
		p, err = cli.clients.Update(ctx, id, upd)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s\n  email: %s\n  téléphone: %s\n  adresse: %s\n", p.FullName(), p.Email, p.Telephone, p.Adresse)
	return nil
}

func (cli *commandLine) listAutoEcoles(ctx context.Context) error {
	list, err := cli.autoecoles.List(ctx)
	if err != nil {
		return err
	}
	for _, ae := range list {
		fmt.Fprintf(cli.out, "%4d  %s, %s %s\n", ae.ID, ae.Nom, ae.Adresse, ae.Ville)
	}
	return nil
}

func (cli *commandLine) selectAutoEcole(ctx context.Context, id int64) error {
	ae, err := cli.autoecoles.Select(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Auto-école sélectionnée: %s\n", ae.Nom)
	return nil
}

func (cli *commandLine) listCourses(ctx context.Context) error {
	list, err := cli.courses.List(ctx)
	if err != nil {
		return err
	}
	for _, c := range list {
		price := "gratuit"
		if courses.NeedsPayment(c) {
			price = fmt.Sprintf("%.2f €", c.Prix)
		}
		fmt.Fprintf(cli.out, "%4d  %-40s %-8s %s\n", c.ID, c.Titre, courses.KindOf(c), price)
	}
	return nil
}

func (cli *commandLine) findCourse(ctx context.Context, id int64) (models.Course, error) {
	list, err := cli.courses.List(ctx)
	if err != nil {
		return models.Course{}, err
	}
	for _, c := range list {
		if c.ID == id {
			return c, nil
		}
	}
	return models.Course{}, fmt.Errorf("cours %d introuvable", id)
}

func (cli *commandLine) viewCourse(ctx context.Context, id int64) error {
	c, err := cli.findCourse(ctx, id)
	if err != nil {
		return err
	}
	if courses.NeedsPayment(c) {
		fmt.Fprintf(cli.out, "Ce cours est payant (%.2f €). Obtenez un lien de paiement: permis pay -id %d\n", c.Prix, c.ID)
		return nil
	}
	kind := courses.KindOf(c)
	if kind == courses.MediaUnsupported {
		fmt.Fprintln(cli.out, "Format de fichier non pris en charge.")
		return nil
	}
	fmt.Fprintf(cli.out, "%s (%s)\n%s\n%s\n", c.Titre, kind, c.Description, c.CloudinaryURL)
	return nil
}

func (cli *commandLine) pay(ctx context.Context, id int64) error {
	u, err := cli.courses.CreatePaymentSession(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Payez ici: %s\nPuis confirmez avec: permis paid -id %d\n", u, id)
	return nil
}

func (cli *commandLine) printSlots(date string) {
	slots := cli.schedule.Slots()
	if date != "" {
		slots = booking.ForDate(slots, date)
	}
	if len(slots) == 0 {
		fmt.Fprintln(cli.out, "Aucun créneau.")
		return
	}
	clientID, _ := cli.sess.ClientID()
	for _, s := range slots {
		state := "réservé"
		switch {
		case s.HeldBy(clientID):
			state = "votre leçon"
		case s.Available:
			state = "libre"
		case s.Status == models.SlotCancelled:
			state = "annulé"
		}
		fmt.Fprintf(cli.out, "%6d  %s  %s  %-20s %s\n", s.ID, s.Date, s.Time, s.Instructor, state)
	}
}

func (cli *commandLine) slots(ctx context.Context, date string) error {
	if err := cli.schedule.Reload(ctx); err != nil {
		return err
	}
	if date == "" {
		if days := booking.Dates(cli.schedule.Slots()); len(days) > 0 {
			fmt.Fprintf(cli.out, "Jours disponibles: %s\n", strings.Join(days, ", "))
		}
	}
	cli.printSlots(date)
	return nil
}

func (cli *commandLine) book(ctx context.Context, id int64) error {
	if err := cli.schedule.Reload(ctx); err != nil {
		return err
	}
	if err := cli.schedule.Book(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Leçon %d réservée.\n", id)
	return nil
}

func (cli *commandLine) cancel(ctx context.Context, id int64) error {
	if err := cli.schedule.Reload(ctx); err != nil {
		return err
	}
	if err := cli.schedule.Cancel(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Leçon %d annulée.\n", id)
	return nil
}

func (cli *commandLine) practiceTest(ctx context.Context) error {
	answers := make([]int, 0, len(practice.Questions))
	for i, q := range practice.Questions {
		fmt.Fprintf(cli.out, "Question %d/%d: %s\n", i+1, len(practice.Questions), q.Text)
		for j, o := range q.Options {
			fmt.Fprintf(cli.out, "  %d. %s\n", j+1, o)
		}
		answer := practice.Unanswered
		for {
			fmt.Fprint(cli.out, "> ")
			line, err := cli.readLine()
			if err == io.EOF {
				break
			}
			if err != nil {
				return err
			}
			n, err := strconv.Atoi(line)
			if err == nil && n >= 1 && n <= len(q.Options) {
				answer = n - 1
				break
			}
			fmt.Fprintf(cli.out, "Répondez par un nombre entre 1 et %d.\n", len(q.Options))
		}
		answers = append(answers, answer)
	}

	score, err := practice.Finish(ctx, cli.sess, answers)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Test terminé. Votre score est de %.0f%%\n", score)
	for _, r := range practice.Review(answers) {
		if !r.OK() {
			fmt.Fprintf(cli.out, "- %s\n  Bonne réponse: %s\n", r.Question.Text, r.CorrectText())
		}
	}
	return nil
}

func (cli *commandLine) chat() error {
	a := chat.New(cli.chatOpts...)
	fmt.Fprintln(cli.out, a.Transcript()[0].Text)
	for {
		fmt.Fprint(cli.out, "> ")
		line, err := cli.readLine()
		if err == io.EOF || line == "quit" {
			return nil
		}
		if err != nil {
			return err
		}
		reply, err := a.Send(line)
		if errors.Is(err, chat.ErrEmptyMessage) {
			continue
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cli.out, reply.Text)
	}
}

func (cli *commandLine) watch(ctx context.Context, date string) error {
	ae, ok := cli.sess.SelectedAutoEcole()
	if !ok {
		return booking.ErrNoAutoEcoleSelected
	}
	if err := cli.slots(ctx, date); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "En attente de changements (Ctrl+C pour quitter)...")
	return live.Watch(ctx, live.URL(cli.liveURL, ae.ID), cli.sess.Token(), func(ev events.SlotStatusChanged) {
		fmt.Fprintf(cli.out, "Créneau %d: %s -> %s\n", ev.SlotID, ev.From, ev.To)
		if err := cli.schedule.Reload(ctx); err != nil {
			fmt.Fprintln(cli.out, describe(err))
			return
		}
		cli.printSlots(date)
	})
}
