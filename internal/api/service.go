// Package api defines the ClinicService gRPC contract. Messages travel as
// JSON under the "json" content-subtype.
package api

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "clinic.v1.ClinicService"

// MaxMessageSize bounds one request or response on both ends. Attachments
// travel inline as base64, and list responses carry every stored file.
const MaxMessageSize = 64 << 20

// ServerOptions raises the server's message limits to MaxMessageSize.
func ServerOptions() []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.MaxRecvMsgSize(MaxMessageSize),
		grpc.MaxSendMsgSize(MaxMessageSize),
	}
}

// DialOption raises a client's message limits to MaxMessageSize.
func DialOption() grpc.DialOption {
	return grpc.WithDefaultCallOptions(
		grpc.MaxCallRecvMsgSize(MaxMessageSize),
		grpc.MaxCallSendMsgSize(MaxMessageSize),
	)
}

// FullMethod returns "/clinic.v1.ClinicService/<name>".
func FullMethod(name string) string { return "/" + ServiceName + "/" + name }

type ClinicServiceServer interface {
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	Logout(context.Context, *Empty) (*Empty, error)
	CurrentUser(context.Context, *Empty) (*CurrentUserResponse, error)

	ListPatients(context.Context, *Empty) (*ListPatientsResponse, error)
	GetPatient(context.Context, *IDRequest) (*PatientResponse, error)
	SearchPatients(context.Context, *SearchPatientsRequest) (*ListPatientsResponse, error)
	CreatePatient(context.Context, *CreatePatientRequest) (*PatientResponse, error)
	UpdatePatient(context.Context, *UpdatePatientRequest) (*PatientResponse, error)
	DeletePatient(context.Context, *IDRequest) (*Empty, error)

	ListAppointments(context.Context, *Empty) (*ListAppointmentsResponse, error)
	GetAppointment(context.Context, *IDRequest) (*AppointmentResponse, error)
	ListPatientAppointments(context.Context, *IDRequest) (*ListAppointmentsResponse, error)
	UpcomingAppointments(context.Context, *UpcomingRequest) (*ListAppointmentsResponse, error)
	TodayAppointments(context.Context, *Empty) (*ListAppointmentsResponse, error)
	AppointmentsInRange(context.Context, *RangeRequest) (*ListAppointmentsResponse, error)
	CreateAppointment(context.Context, *CreateAppointmentRequest) (*AppointmentResponse, error)
	UpdateAppointment(context.Context, *UpdateAppointmentRequest) (*AppointmentResponse, error)
	DeleteAppointment(context.Context, *IDRequest) (*Empty, error)
	AddAttachment(context.Context, *AddAttachmentRequest) (*AppointmentResponse, error)
	RemoveAttachment(context.Context, *RemoveAttachmentRequest) (*AppointmentResponse, error)

	Calendar(context.Context, *CalendarRequest) (*CalendarResponse, error)
	AdminDashboard(context.Context, *Empty) (*AdminDashboardResponse, error)
	PatientDashboard(context.Context, *PatientDashboardRequest) (*PatientDashboardResponse, error)
}

func unary[Req, Resp any](name string, call func(ClinicServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ClinicServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ClinicServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ClinicServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Login", ClinicServiceServer.Login),
		unary("Logout", ClinicServiceServer.Logout),
		unary("CurrentUser", ClinicServiceServer.CurrentUser),
		unary("ListPatients", ClinicServiceServer.ListPatients),
		unary("GetPatient", ClinicServiceServer.GetPatient),
		unary("SearchPatients", ClinicServiceServer.SearchPatients),
		unary("CreatePatient", ClinicServiceServer.CreatePatient),
		unary("UpdatePatient", ClinicServiceServer.UpdatePatient),
		unary("DeletePatient", ClinicServiceServer.DeletePatient),
		unary("ListAppointments", ClinicServiceServer.ListAppointments),
		unary("GetAppointment", ClinicServiceServer.GetAppointment),
		unary("ListPatientAppointments", ClinicServiceServer.ListPatientAppointments),
		unary("UpcomingAppointments", ClinicServiceServer.UpcomingAppointments),
		unary("TodayAppointments", ClinicServiceServer.TodayAppointments),
		unary("AppointmentsInRange", ClinicServiceServer.AppointmentsInRange),
		unary("CreateAppointment", ClinicServiceServer.CreateAppointment),
		unary("UpdateAppointment", ClinicServiceServer.UpdateAppointment),
		unary("DeleteAppointment", ClinicServiceServer.DeleteAppointment),
		unary("AddAttachment", ClinicServiceServer.AddAttachment),
		unary("RemoveAttachment", ClinicServiceServer.RemoveAttachment),
		unary("Calendar", ClinicServiceServer.Calendar),
		unary("AdminDashboard", ClinicServiceServer.AdminDashboard),
		unary("PatientDashboard", ClinicServiceServer.PatientDashboard),
	},
	Streams: []grpc.StreamDesc{},
}

func RegisterClinicServiceServer(s grpc.ServiceRegistrar, srv ClinicServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client invokes ClinicService methods over conn with the JSON codec.
type Client struct {
	conn grpc.ClientConnInterface
}

func NewClient(conn grpc.ClientConnInterface) *Client { return &Client{conn: conn} }

// Call invokes method (the bare name, e.g. "Login").
func (c *Client) Call(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.conn.Invoke(ctx, FullMethod(method), in, out, opts...)
}
